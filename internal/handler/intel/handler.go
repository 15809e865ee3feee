// Package intel exposes the lookup orchestrator over HTTP.
package intel

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TomasB/ipintel/internal/intel"
)

// Service is the orchestrator surface the handlers depend on.
type Service interface {
	Lookup(query string, opts intel.Options) (*intel.Record, error)
	Bulk(queries []string, maxBulkSize int) (map[string]intel.BulkEntry, error)
	Distance(ip1, ip2 string, strictSourceAgreement bool) (*intel.DistanceResult, error)
	Whois(query string) (string, error)
	WhoisExists(query string) (bool, error)
	WhoisPath(query string) (string, error)
	Reload(ctx context.Context) (string, error)
	Versions(humanReadable bool) (map[string]string, error)
}

// BulkRequest represents the JSON body for a bulk lookup.
type BulkRequest struct {
	Queries     []string `json:"queries" binding:"required"`
	MaxBulkSize int      `json:"max_bulk_size"`
}

// WhoisResponse represents the JSON response for a whois lookup.
type WhoisResponse struct {
	Query  string `json:"query"`
	Exists bool   `json:"exists"`
	Path   string `json:"path,omitempty"`
	Record string `json:"record,omitempty"`
}

// Handler manages the intelligence query endpoints.
type Handler struct {
	orch Service
}

// NewHandler creates a new handler backed by the given orchestrator.
func NewHandler(orch Service) *Handler {
	return &Handler{orch: orch}
}

// Lookup handles GET /api/v1/lookup?q=...&categories=...&perf=1
func (h *Handler) Lookup(c *gin.Context) {
	query := c.Query("q")
	mask, ok := intel.ParseCategories(c.Query("categories"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "unknown category in " + strconv.Quote(c.Query("categories")),
			"error_code": "INVALID_CATEGORY_MASK",
		})
		return
	}

	rec, err := h.orch.Lookup(query, intel.Options{
		Mask:        mask,
		MeasurePerf: boolQuery(c, "perf"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Bulk handles POST /api/v1/bulk
func (h *Handler) Bulk(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "invalid request: " + err.Error(),
			"error_code": string(intel.CodeInvalidBulkInput),
		})
		return
	}
	if req.MaxBulkSize == 0 {
		req.MaxBulkSize = intel.DefaultMaxBulkSize
	}

	out, err := h.orch.Bulk(req.Queries, req.MaxBulkSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Distance handles GET /api/v1/distance?ip1=...&ip2=...&strict=1
func (h *Handler) Distance(c *gin.Context) {
	res, err := h.orch.Distance(c.Query("ip1"), c.Query("ip2"), boolQuery(c, "strict"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Whois handles GET /api/v1/whois?q=...&mode=content|probe|path
func (h *Handler) Whois(c *gin.Context) {
	query := c.Query("q")
	resp := WhoisResponse{Query: query}

	switch c.DefaultQuery("mode", "content") {
	case "probe":
		exists, err := h.orch.WhoisExists(query)
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Exists = exists
	case "path":
		path, err := h.orch.WhoisPath(query)
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Exists, resp.Path = true, path
	case "content":
		record, err := h.orch.Whois(query)
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Exists, resp.Record = true, record
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "mode must be content, probe or path",
			"error_code": "INVALID_WHOIS_MODE",
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reload handles POST /api/v1/reload
func (h *Handler) Reload(c *gin.Context) {
	status, err := h.orch.Reload(c.Request.Context())
	if err != nil {
		slog.Error("reload failed", "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// Versions handles GET /api/v1/versions?human=1
func (h *Handler) Versions(c *gin.Context) {
	versions, err := h.orch.Versions(boolQuery(c, "human"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

func boolQuery(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.DefaultQuery(name, "false"))
	return v
}

func writeError(c *gin.Context, err error) {
	terr := intel.AsError(err)
	c.JSON(statusFor(terr.Code), terr)
}

func statusFor(code intel.Code) int {
	switch code {
	case intel.CodeInvalidIPOrASN, intel.CodeInvalidBulkInput,
		intel.CodeNoValidBulkEntries, intel.CodeInvalidBulkSize,
		intel.CodeInvalidIP1, intel.CodeInvalidIP2:
		return http.StatusBadRequest
	case intel.CodeASNLookupDisabled:
		return http.StatusForbidden
	case intel.CodeWhoisNotFound, intel.CodeNoLocationData:
		return http.StatusNotFound
	case intel.CodeBulkLimitExceeded:
		return http.StatusRequestEntityTooLarge
	case intel.CodeDistanceFailed:
		return http.StatusUnprocessableEntity
	case intel.CodeNotLoaded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
