package factory

import (
	"context"
	"time"

	"github.com/mathmaster/mathmaster-go/internal/dependencies/mocks"
	memorygateway "github.com/mathmaster/mathmaster-go/internal/gateway/memory"
	"github.com/mathmaster/mathmaster-go/internal/seed"
	"github.com/mathmaster/mathmaster-go/internal/services/session"
	"github.com/mathmaster/mathmaster-go/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// MemoryGateway is the underlying gateway for direct inspection
	MemoryGateway *memorygateway.Gateway
}

// NewTestApp creates an App configured for testing: a seeded in-memory
// gateway with mocked dependencies.
func NewTestApp() *TestApp {
	logger := testutil.NopLogger()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	gw := memorygateway.New(mockClock, logger)
	if err := gw.Seed(context.Background(), seed.Themes(), seed.Badges(), seed.Exercises()); err != nil {
		panic(err)
	}

	app := newWithDependencies(gw, mockClock, mockRandom, session.NopUI{}, logger)

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		MemoryGateway: gw,
	}
}
