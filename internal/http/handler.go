package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/climate-indices/internal/domain"
	"go.ngs.io/climate-indices/internal/index"
	"go.ngs.io/climate-indices/internal/usecase"
)

// Computer runs one index computation.
type Computer interface {
	Execute(ctx context.Context, req usecase.ComputeRequest) (*usecase.ComputeResponse, error)
}

// Handler handles HTTP requests for climate indices.
type Handler struct {
	computer Computer
	dataDir  string
}

// NewHandler creates a new HTTP handler. File names in requests are
// resolved relative to dataDir.
func NewHandler(computer Computer, dataDir string) *Handler {
	return &Handler{
		computer: computer,
		dataDir:  dataDir,
	}
}

// ComputeBody is the JSON body of POST /v1/indices/:name.
type ComputeBody struct {
	InFile    string `json:"infile" binding:"required"`
	Variable  string `json:"variable" binding:"required"`
	OutFile   string `json:"outfile" binding:"required"`
	BaseStart string `json:"base_start"`
	BaseEnd   string `json:"base_end"`
	Engine    string `json:"engine"`
	Timescale string `json:"timescale"`
}

// Compute handles POST /v1/indices/:name.
func (h *Handler) Compute(c *gin.Context) {
	name := c.Param("name")
	if _, err := index.Lookup(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var body ComputeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	inFile, err := h.resolve(body.InFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outFile, err := h.resolve(body.OutFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.computer.Execute(c.Request.Context(), usecase.ComputeRequest{
		Index:      name,
		InFile:     inFile,
		Variable:   body.Variable,
		OutFile:    outFile,
		BaseStart:  body.BaseStart,
		BaseEnd:    body.BaseEnd,
		Engine:     body.Engine,
		Timescale:  body.Timescale,
		Provenance: fmt.Sprintf("POST /v1/indices/%s infile=%s variable=%s outfile=%s", name, body.InFile, body.Variable, body.OutFile),
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	// Report paths as the client gave them.
	response.Output = body.OutFile
	c.JSON(http.StatusOK, response)
}

// resolve maps a client file name to a path under the data directory.
func (h *Handler) resolve(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("file %q must be a relative path inside the data directory", name)
	}
	return filepath.Join(h.dataDir, name), nil
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDataQuality):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCollaborator):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetIndices handles GET /v1/indices.
func (h *Handler) GetIndices(c *gin.Context) {
	entries := index.Entries()
	c.JSON(http.StatusOK, gin.H{
		"indices": entries,
		"count":   len(entries),
	})
}

// GetIndex handles GET /v1/indices/:name.
func (h *Handler) GetIndex(c *gin.Context) {
	e, err := index.Lookup(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, e)
}

// RegionResponse describes one named region.
type RegionResponse struct {
	Name  string  `json:"name"`
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// GetRegions handles GET /v1/regions.
func (h *Handler) GetRegions(c *gin.Context) {
	regions := domain.Regions()
	response := make([]RegionResponse, len(regions))
	for i, r := range regions {
		response[i] = RegionResponse{
			Name:  r.Name,
			South: r.South,
			North: r.North,
			West:  r.West,
			East:  r.East,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"regions": response,
		"count":   len(response),
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
