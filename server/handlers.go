package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/aqua777/docquery/rag/reader"
	"github.com/gin-gonic/gin"
)

// ChatRequest is the body of POST /chat/:collection. Fields other than
// query, such as a client side history, are ignored.
type ChatRequest struct {
	Query *string `json:"query"`
}

// IngestResponse is the body returned by a successful ingestion.
type IngestResponse struct {
	Message string `json:"Message"`
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleIngest replaces a collection with the uploaded "files".
func (s *Server) handleIngest(c *gin.Context) {
	collection := c.Param("collection")

	form, err := c.MultipartForm()
	if err != nil {
		handleError(c, NewAppError(http.StatusUnprocessableEntity, "files are required", err))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		handleError(c, NewAppError(http.StatusUnprocessableEntity, "files are required", nil))
		return
	}

	files := make([]reader.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			handleError(c, err)
			return
		}
		files = append(files, reader.File{Name: fh.Filename, Data: data})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.ingester.Ingest(ctx, collection, files)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, IngestResponse{Message: result.Message()})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

// handleChat answers one question and returns the answer as a JSON string.
func (s *Server) handleChat(c *gin.Context) {
	collection := c.Param("collection")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, NewAppError(http.StatusUnprocessableEntity, "invalid request body", err))
		return
	}
	if req.Query == nil {
		handleError(c, NewAppError(http.StatusUnprocessableEntity, "query is required", nil))
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	resp, err := s.chat.Chat(ctx, collection, *req.Query)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp.Response)
}

// handleResetChat clears the conversation buffer of a collection.
func (s *Server) handleResetChat(c *gin.Context) {
	if err := s.chat.Reset(c.Request.Context(), c.Param("collection")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleCollections lists the stored collections.
func (s *Server) handleCollections(c *gin.Context) {
	collections, err := s.catalog.Collections(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, collections)
}

// handleCollection lists the files ingested into one collection.
func (s *Server) handleCollection(c *gin.Context) {
	files, err := s.catalog.Files(c.Request.Context(), c.Param("collection"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": c.Param("collection"), "files": files})
}
