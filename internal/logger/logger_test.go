package logger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/logger"
)

func TestMsgIDs(t *testing.T) {
	for id := logger.MsgID_None; id <= logger.MsgID_END; id++ {
		str := logger.MsgIDToString(id)
		if str == "" {
			continue
		}

		overrides := make(map[logger.MsgID]logger.LogLevel)
		logger.StringToMsgIDs(str, logger.LevelError, overrides)
		require.NotEmpty(t, overrides, "expected to find message id(s) for %q", str)

		for k, v := range overrides {
			require.Equal(t, str, logger.MsgIDToString(k))
			require.Equal(t, logger.LevelError, v)
		}
	}
}
