package app

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"tracker.wpgtransit.org/internal/appconf"
)

func TestIsInvalidAPIKey(t *testing.T) {
	application := &Application{
		Config: appconf.Config{APIKeys: []string{"alpha", "beta"}},
	}

	assert.False(t, application.IsInvalidAPIKey("alpha"))
	assert.False(t, application.IsInvalidAPIKey("beta"))
	assert.True(t, application.IsInvalidAPIKey("gamma"))
	assert.True(t, application.IsInvalidAPIKey(""))
}

func TestIsInvalidAPIKeyOpenWhenUnconfigured(t *testing.T) {
	application := &Application{Config: appconf.Config{}}

	assert.False(t, application.IsInvalidAPIKey(""))
	assert.False(t, application.IsInvalidAPIKey("anything"))
}

func TestRequestHasInvalidAPIKey(t *testing.T) {
	application := &Application{
		Config: appconf.Config{APIKeys: []string{"alpha"}},
	}

	r := httptest.NewRequest("GET", "/api/v1/stops/nearby?key=alpha", nil)
	assert.False(t, application.RequestHasInvalidAPIKey(r))

	r = httptest.NewRequest("GET", "/api/v1/stops/nearby", nil)
	assert.True(t, application.RequestHasInvalidAPIKey(r))
}
