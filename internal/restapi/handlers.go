package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/Embucket/embucket-sub001/internal/apierr"
	"github.com/Embucket/embucket-sub001/internal/executor"
	"github.com/Embucket/embucket-sub001/internal/resultset"
)

type loginRequestBody struct {
	Data struct {
		LoginName string `json:"LOGIN_NAME"`
		Password  string `json:"PASSWORD"`
	} `json:"data"`
}

type queryRequestBody struct {
	SQLText   string `json:"sqlText"`
	AsyncExec bool   `json:"asyncExec"`
}

type abortRequestBody struct {
	SQLText   string `json:"sqlText"`
	RequestID string `json:"requestId"`
}

// handleLogin implements POST /session/v1/login-request: validates the
// demo credentials and mints a fresh opaque session token equal to the
// new session id, per spec §4.7/S1.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, apierr.Wrap(apierr.KindBodyParse, "invalid login request body", err), s.log)
		return
	}

	if body.Data.LoginName != s.cfg.AuthDemoUser || body.Data.Password != s.cfg.AuthDemoPassword {
		RespondError(w, apierr.New(apierr.KindInvalidAuthToken, "invalid login credentials"), s.log)
		return
	}

	sessionID := uuid.NewString()
	s.sessions.GetOrCreate(sessionID)

	RespondOK(w, &ResponseData{Token: sessionID}, s.log)
}

// handleSession implements POST /session, used to explicitly close out
// a session (e.g. driver-initiated logout).
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := SessionIDFromContext(r.Context())
	if id != "" {
		s.sessions.Delete(id)
	}
	RespondNull(w, s.log)
}

// handleQuery implements POST /queries/v1/query-request, per spec
// §4.7/S1/S2/S6.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("requestId")
	sessionID := SessionIDFromContext(r.Context())

	var body queryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, apierr.Wrap(apierr.KindBodyParse, "invalid query request body", err), s.log)
		return
	}

	if body.AsyncExec {
		RespondError(w, apierr.New(apierr.KindUnsupportedFeature, "asyncExec is not supported"), s.log)
		return
	}

	result, err := s.executor.Query(r.Context(), sessionID, requestID, body.SQLText)
	if err != nil {
		RespondError(w, err, s.log)
		return
	}

	s.respondQueryResult(w, result)
}

func (s *Server) respondQueryResult(w http.ResponseWriter, result *executor.QueryResult) {
	format := resultset.Format(s.cfg.DataFormat)

	serialized, err := resultset.Serialize(format, result.Rows, s.log)
	if err != nil {
		RespondError(w, apierr.Wrap(apierr.KindInternal, "serializing result set", err), s.log)
		return
	}

	data := &ResponseData{
		QueryResultFmt: string(format),
		QueryID:        result.QueryID,
	}

	switch env := serialized.(type) {
	case *resultset.JSONEnvelope:
		data.RowType = env.RowType
		data.RowSet = env.Rows
		rowCount := int64(len(env.Rows))
		data.Total, data.Returned = rowCount, rowCount
	case *resultset.ArrowEnvelope:
		data.RowType = env.RowType
		data.RowSetBase64 = env.RowSetBase64
	}

	RespondOK(w, data, s.log)
}

// handleAbort implements POST /queries/v1/abort-request: always
// responds success:true/data:null, whether or not a matching query
// was actually found (spec S3).
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	var body abortRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, apierr.Wrap(apierr.KindBodyParse, "invalid abort request body", err), s.log)
		return
	}

	s.executor.AbortQuery(body.RequestID, body.SQLText)
	RespondNull(w, s.log)
}
