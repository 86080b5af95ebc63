package integration

import (
	"context"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

func TestMain(m *testing.M) {
	code := m.Run()
	if redisHandle != nil {
		_ = redisHandle.Terminate(context.Background())
	}
	os.Exit(code)
}
