package restapi

import "net/http"

// debugSchemaHandler dumps the schedule database schema and row counts.
// Registered outside production only.
func (api *RestAPI) debugSchemaHandler(w http.ResponseWriter, r *http.Request) {
	dump, err := api.Schedule.DumpSchema()
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(dump))
}
