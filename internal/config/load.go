package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// RawOptions is the subset of CompilerOptions that can be expressed in a
// config file / environment variables / CLI flags — the knobs named in
// spec §6's CLI surface. ModuleRule.Test/Include/Exclude regexes and
// CacheGroup.ChunkFilter function values aren't representable here and are
// layered on top by the caller after Load returns.
type RawOptions struct {
	Mode                string `mapstructure:"mode"`
	Target              string `mapstructure:"target"`
	Stats               string `mapstructure:"stats"`
	Progress            bool   `mapstructure:"progress"`
	UsedExports         string `mapstructure:"optimization_used_exports"`
	ProvidedExports     bool   `mapstructure:"optimization_provided_exports"`
	SideEffects         bool   `mapstructure:"optimization_side_effects"`
	SplitChunksEnabled  bool   `mapstructure:"optimization_split_chunks_enabled"`
	OutputFilename      string `mapstructure:"output_filename"`
	ChunkFilename       string `mapstructure:"chunk_filename"`
	HashDigestLength    int    `mapstructure:"hash_digest_length"`
	IgnoreOrder         bool   `mapstructure:"ignore_order"`
}

// Load resolves RawOptions from, in increasing priority: built-in defaults,
// an optional YAML config file, environment variables prefixed
// "BUNDLECORE_", and finally any flags the bind callback binds into v. This is
// the same flag > env > file > default precedence chain viper provides out
// of the box, the pattern bennypowers-cem uses to layer its own CLI config.
func Load(configPath string, bind func(v *viper.Viper) error) (RawOptions, error) {
	v := viper.New()
	v.SetEnvPrefix("BUNDLECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "production")
	v.SetDefault("target", "es2020")
	v.SetDefault("optimization_used_exports", "true")
	v.SetDefault("optimization_provided_exports", true)
	v.SetDefault("optimization_side_effects", true)
	v.SetDefault("optimization_split_chunks_enabled", true)
	v.SetDefault("output_filename", "[name].js")
	v.SetDefault("chunk_filename", "[name]-[contenthash:8].js")
	v.SetDefault("hash_digest_length", 8)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return RawOptions{}, fmt.Errorf("reading config %q: %w", configPath, err)
		}
	}

	if bind != nil {
		if err := bind(v); err != nil {
			return RawOptions{}, err
		}
	}

	var raw RawOptions
	if err := v.Unmarshal(&raw); err != nil {
		return RawOptions{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return raw, nil
}

// ToCompilerOptions applies the raw, flat config surface onto a
// CompilerOptions whose structural fields (ModuleRules, CacheGroups,
// Entries) the caller has already populated — mirroring the teacher's
// TSConfigJSX.ApplyExtendedConfig "merge onto an existing struct" shape.
func (raw RawOptions) ToCompilerOptions(base CompilerOptions) CompilerOptions {
	out := base

	switch raw.UsedExports {
	case "global":
		out.Optimization.UsedExports = UsedExportsGlobal
	case "false":
		out.Optimization.UsedExports = UsedExportsFalse
	default:
		out.Optimization.UsedExports = UsedExportsTrue
	}
	out.Optimization.ProvidedExports = raw.ProvidedExports
	out.Optimization.SideEffects = raw.SideEffects
	if !raw.SplitChunksEnabled {
		out.Optimization.SplitChunks = SplitChunksOptions{}
	}

	if raw.OutputFilename != "" {
		out.OutputFilename = ParseFilenameTemplate(raw.OutputFilename)
	}
	if raw.ChunkFilename != "" {
		out.ChunkFilenameTemplate = ParseFilenameTemplate(raw.ChunkFilename)
	}
	if raw.HashDigestLength > 0 {
		out.HashDigestLength = raw.HashDigestLength
	}
	out.IgnoreOrder = raw.IgnoreOrder
	return out
}
