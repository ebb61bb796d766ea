package memory_test

import (
	"testing"

	"github.com/dropDatabas3/weasl/internal/store"
	"github.com/dropDatabas3/weasl/internal/store/adapters/memory"
	"github.com/dropDatabas3/weasl/internal/store/storetest"
)

func TestMemoryAdapterConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Connection { return memory.New() })
}
