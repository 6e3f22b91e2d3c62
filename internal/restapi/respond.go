package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/Embucket/embucket-sub001/internal/apierr"
	"github.com/Embucket/embucket-sub001/internal/embucketlog"
)

// ResponseData is the Snowflake-shaped `data` payload, grounded on
// the source system's `ResponseData`/`LoginResponseData` models.
type ResponseData struct {
	Token            string      `json:"token,omitempty"`
	RowType          interface{} `json:"rowType,omitempty"`
	QueryResultFmt   string      `json:"queryResultFormat,omitempty"`
	RowSet           interface{} `json:"rowSet,omitempty"`
	RowSetBase64     string      `json:"rowSetBase64,omitempty"`
	Total            int64       `json:"total,omitempty"`
	Returned         int64       `json:"returned,omitempty"`
	QueryID          string      `json:"queryId,omitempty"`
}

// Envelope is the top-level Snowflake JSON response shape.
type Envelope struct {
	Data    *ResponseData `json:"data,omitempty"`
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Code    string        `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}, log *embucketlog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("encoding response: " + err.Error())
	}
}

// RespondOK writes a successful Snowflake-shaped response: HTTP 200,
// success:true, the given data payload.
func RespondOK(w http.ResponseWriter, data *ResponseData, log *embucketlog.Logger) {
	writeJSON(w, http.StatusOK, Envelope{Data: data, Success: true, Message: "successfully executed"}, log)
}

// RespondNull writes the `success:true, data:null` shape used by the
// abort-request endpoint regardless of whether a matching query was found.
func RespondNull(w http.ResponseWriter, log *embucketlog.Logger) {
	writeJSON(w, http.StatusOK, Envelope{Success: true}, log)
}

// RespondError maps an apierr.Error to the wire response per spec §7's
// policy: auth/parse-shape failures get their own HTTP status and an
// opaque message; execution failures are HTTP 200 with success:false
// and the numeric code; internal faults are HTTP 500 with the message
// stripped and the full chain only in the log.
func RespondError(w http.ResponseWriter, err error, log *embucketlog.Logger) {
	apiErr := apierr.As(err)

	message := apiErr.Message
	if apiErr.IsInternal() {
		log.Error("internal error: " + apiErr.Error())
		message = "internal error"
	}

	writeJSON(w, apiErr.HTTPStatus(), Envelope{
		Success: false,
		Message: message,
		Code:    string(apiErr.Code()),
	}, log)
}
