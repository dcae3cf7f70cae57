package httpapi

import (
	"errors"
	"net/http"
	"time"

	"orm-platform/internal/assessment"
	"orm-platform/internal/auth"
	"orm-platform/internal/catalog"
	"orm-platform/internal/rbac"
	"orm-platform/internal/reporting"
	"orm-platform/internal/risk"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Forms     *assessment.Service
	Catalog   catalog.Repository
	Reporting *reporting.Service
}

// writeError maps domain errors to HTTP responses. The approval hard stop
// gets its own status and a machine-readable body so clients can render the
// reason code verbatim.
func writeError(c *gin.Context, err error) {
	var vErr *assessment.ValidationError
	if errors.As(err, &vErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "validation",
			"field":  vErr.Field,
			"reason": vErr.Reason,
		})
		return
	}

	var bErr *assessment.ApprovalBlockedError
	if errors.As(err, &bErr) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":                 "approval_blocked",
			"reason":                bErr.Reason,
			"highest_residual_risk": string(bErr.HighestResidualRisk),
			"message":               bErr.Message,
		})
		return
	}

	var tErr *assessment.TransitionError
	if errors.As(err, &tErr) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":  "invalid_transition",
			"from":   string(tErr.From),
			"op":     tErr.Op,
			"reason": tErr.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, assessment.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, assessment.ErrConcurrencyConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "version_conflict"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --- Auth ---

type loginRequest struct {
	UserID     string `json:"user_id"`
	IncidentID string `json:"incident_id"`
	Role       string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.IncidentID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, incident_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.IncidentID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Forms ---

func (h Handlers) CreateForm(c *gin.Context) {
	actorID, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	var req assessment.CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	// The token scopes the caller to one incident; the body may not widen it.
	if req.IncidentID == "" {
		req.IncidentID = incidentID
	}
	if req.IncidentID != incidentID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "incident mismatch"})
		return
	}
	f, err := h.Forms.CreateForm(c.Request.Context(), actorID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h Handlers) GetForm(c *gin.Context) {
	_, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	f, supplements, err := h.Forms.GetForm(c.Request.Context(), c.Param("form_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if f.IncidentID != incidentID {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	resp := gin.H{"form": f}
	if len(supplements) > 0 {
		resp["supplements"] = supplements
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handlers) ListForms(c *gin.Context) {
	_, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	flt := assessment.Filters{
		IncidentID:          incidentID,
		Type:                assessment.FormType(c.Query("form_type")),
		Status:              assessment.Status(c.Query("status")),
		HighestResidualRisk: riskQuery(c),
	}
	forms, err := h.Forms.ListForms(c.Request.Context(), flt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forms": forms})
}

func (h Handlers) UpdateHeader(c *gin.Context) {
	actorID, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	if !h.requireFormScope(c, c.Param("form_id"), incidentID) {
		return
	}
	var req assessment.HeaderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	f, err := h.Forms.UpdateHeader(c.Request.Context(), c.Param("form_id"), actorID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// --- Hazard rows ---

func (h Handlers) AddHazard(c *gin.Context) {
	actorID, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	if !h.requireFormScope(c, c.Param("form_id"), incidentID) {
		return
	}
	var in assessment.HazardInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	f, row, err := h.Forms.AddHazard(c.Request.Context(), c.Param("form_id"), actorID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"form": f, "hazard": row})
}

func (h Handlers) UpdateHazard(c *gin.Context) {
	actorID, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	if !h.requireFormScope(c, c.Param("form_id"), incidentID) {
		return
	}
	var in assessment.HazardInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	f, row, err := h.Forms.UpdateHazard(c.Request.Context(), c.Param("form_id"), c.Param("hazard_id"), actorID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"form": f, "hazard": row})
}

func (h Handlers) RemoveHazard(c *gin.Context) {
	actorID, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	if !h.requireFormScope(c, c.Param("form_id"), incidentID) {
		return
	}
	f, err := h.Forms.RemoveHazard(c.Request.Context(), c.Param("form_id"), c.Param("hazard_id"), actorID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// --- Workflow ---

func (h Handlers) Submit(c *gin.Context) {
	actorID, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	if !h.requireFormScope(c, c.Param("form_id"), incidentID) {
		return
	}
	f, err := h.Forms.Submit(c.Request.Context(), c.Param("form_id"), actorID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// Approve runs the hard-stop gate. A blocked form yields 422 with the
// reason code; there is no override parameter and none is parsed.
func (h Handlers) Approve(c *gin.Context) {
	actorID, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	if !h.requireFormScope(c, c.Param("form_id"), incidentID) {
		return
	}
	f, err := h.Forms.Approve(c.Request.Context(), c.Param("form_id"), actorID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

type disapproveRequest struct {
	Note string `json:"note"`
}

func (h Handlers) Disapprove(c *gin.Context) {
	actorID, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	if !h.requireFormScope(c, c.Param("form_id"), incidentID) {
		return
	}
	var req disapproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	f, err := h.Forms.Disapprove(c.Request.Context(), c.Param("form_id"), actorID, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// --- Export / audit ---

func (h Handlers) Export(c *gin.Context) {
	actorID, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	if !h.requireFormScope(c, c.Param("form_id"), incidentID) {
		return
	}
	doc, err := h.Forms.Export(c.Request.Context(), c.Param("form_id"), actorID)
	if err != nil {
		writeError(c, err)
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, doc.RenderText())
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h Handlers) AuditTrail(c *gin.Context) {
	_, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	if !h.requireFormScope(c, c.Param("form_id"), incidentID) {
		return
	}
	entries, err := h.Forms.AuditTrail(c.Request.Context(), c.Param("form_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// --- Reporting ---

func (h Handlers) FormsSummary(c *gin.Context) {
	_, incidentID, ok := h.identity(c)
	if !ok {
		return
	}
	sum, err := h.Reporting.FormsSummary(c.Request.Context(), reporting.FormsSummaryRequest{IncidentID: incidentID})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- Catalog ---

func (h Handlers) ListTemplates(c *gin.Context) {
	if h.Catalog == nil {
		c.JSON(http.StatusOK, gin.H{"templates": []catalog.Template{}})
		return
	}
	templates, err := h.Catalog.List(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (h Handlers) GetTemplate(c *gin.Context) {
	if h.Catalog == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	tpl, ok, err := h.Catalog.Find(c.Request.Context(), c.Param("template_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// identity pulls the caller's user and incident from request context. The
// auth middleware guarantees both for protected routes.
func (h Handlers) identity(c *gin.Context) (userID, incidentID string, ok bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return "", "", false
	}
	iid, err := auth.IncidentID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "incident_id required"})
		return "", "", false
	}
	return uid, iid, true
}

// requireFormScope rejects requests for forms owned by another incident.
// Foreign forms read as 404 so the response does not confirm they exist.
func (h Handlers) requireFormScope(c *gin.Context, formID, incidentID string) bool {
	owner, err := h.Forms.FormIncident(c.Request.Context(), formID)
	if err != nil {
		writeError(c, err)
		return false
	}
	if owner != incidentID {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return false
	}
	return true
}

func riskQuery(c *gin.Context) risk.Level {
	v := c.Query("highest_residual_risk")
	if v == "" {
		return risk.LevelNone
	}
	parsed, err := risk.ParseLevel(v)
	if err != nil {
		return risk.LevelNone
	}
	return parsed
}

// Convenience middleware bundles.

func RequireIncidentAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireIncident(), rbac.RequireAnyRole(roles...)}
}
