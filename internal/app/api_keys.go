package app

import (
	"crypto/subtle"
	"net/http"
)

func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	return app.IsInvalidAPIKey(r.URL.Query().Get("key"))
}

func (app *Application) IsInvalidAPIKey(key string) bool {
	// No configured keys means the API is open.
	if len(app.Config.APIKeys) == 0 {
		return false
	}
	if key == "" {
		return true
	}

	for _, validKey := range app.Config.APIKeys {
		// Constant-time comparison to prevent timing attacks.
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			return false
		}
	}

	return true
}
