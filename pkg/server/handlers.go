package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/aggregate"
	"github.com/David-Botos/tag-remediation/pkg/export"
	"github.com/David-Botos/tag-remediation/pkg/filter"
	"github.com/David-Botos/tag-remediation/pkg/model"
)

// defaultSourceName is used when an upload carries no file name
const defaultSourceName = "upload.csv"

type uploadResponse struct {
	Source      string   `json:"source"`
	Fingerprint string   `json:"fingerprint"`
	Rows        int      `json:"rows"`
	Columns     []string `json:"columns"`
	Repairs     int      `json:"repairs"`
	Coercions   int      `json:"coercions"`
	Initialized bool     `json:"initialized"`
}

type rowRecord struct {
	Row    int                   `json:"row"`
	Values map[string]model.Cell `json:"values"`
}

type rowsResponse struct {
	Snapshot string      `json:"snapshot"`
	Columns  []string    `json:"columns"`
	Total    int         `json:"total"`
	Count    int         `json:"count"`
	Rows     []rowRecord `json:"rows"`
}

// handleUpload loads the request body (raw or multipart field "file") and
// initializes the session with it. A failed load leaves the session untouched.
func (s *Server) handleUpload(c *gin.Context) {
	source, content, err := s.readUpload(c)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	result, err := s.cleaner.Load(source, content)
	if err != nil {
		s.metrics.ObserveLoadError(err)
		abortWithError(c, err)
		return
	}
	s.metrics.ObserveLoad(result)

	s.mu.Lock()
	initialized, err := s.session.Initialize(c.Request.Context(), result)
	s.mu.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		Source:      result.Source,
		Fingerprint: result.Fingerprint,
		Rows:        result.Table.Len(),
		Columns:     result.Table.Schema().Columns(),
		Repairs:     len(result.Repairs),
		Coercions:   len(result.Coercions),
		Initialized: initialized,
	})
}

func (s *Server) readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("failed to read multipart field \"file\": %w", err)
		}
		f, err := header.Open()
		if err != nil {
			return "", nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read uploaded file: %w", err)
		}
		return header.Filename, content, nil
	}

	content, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return c.DefaultQuery("name", defaultSourceName), content, nil
}

// handleSession describes the loaded file
func (s *Server) handleSession(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.session.Loaded() {
		abortWithError(c, model.ErrNoSession)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":  s.session.ID.String(),
		"source":      s.session.Source(),
		"fingerprint": s.session.Fingerprint(),
		"rows":        s.session.Original().Len(),
	})
}

// view resolves the query's snapshot and filter under the read lock held by the caller
func (s *Server) view(c *gin.Context, fallback string) (model.View, string, bool) {
	var q viewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBadRequest(c, err)
		return nil, "", false
	}
	if !s.session.Loaded() {
		abortWithError(c, model.ErrNoSession)
		return nil, "", false
	}

	name := q.snapshotOr(fallback)
	snapshot := s.session.Original()
	if name == snapshotEdited {
		snapshot = s.session.Edited()
	}
	return filter.Apply(snapshot, q.Predicates), name, true
}

func rows(name string, total int, v model.View) rowsResponse {
	resp := rowsResponse{
		Snapshot: name,
		Columns:  v.Schema().Columns(),
		Total:    total,
		Count:    v.Len(),
		Rows:     make([]rowRecord, v.Len()),
	}
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		resp.Rows[i] = rowRecord{Row: row.Index(), Values: row.Map()}
	}
	return resp
}

// handleResources lists the filtered rows of a snapshot (original by default)
func (s *Server) handleResources(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, name, ok := s.view(c, snapshotOriginal)
	if !ok {
		return
	}
	total := s.session.Original().Len()
	c.JSON(http.StatusOK, rows(name, total, v))
}

// handleFilterOptions lists the selector values of a filterable column
func (s *Server) handleFilterOptions(c *gin.Context) {
	var uri filterColumnURI
	if err := c.ShouldBindUri(&uri); err != nil {
		abortBadRequest(c, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, _, ok := s.view(c, snapshotOriginal)
	if !ok {
		return
	}
	options, err := filter.Options(v, uri.Column)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"column":  uri.Column,
		"options": append([]string{filter.All}, options...),
	})
}

func (s *Server) handleReport(c *gin.Context) {
	s.withView(c, snapshotOriginal, func(v model.View) (any, error) {
		return aggregate.BuildReport(v), nil
	})
}

func (s *Server) handleOverview(c *gin.Context) {
	s.withView(c, snapshotOriginal, func(v model.View) (any, error) {
		return aggregate.Summarize(v), nil
	})
}

func (s *Server) handleMissing(c *gin.Context) {
	s.withView(c, snapshotOriginal, func(v model.View) (any, error) {
		all := aggregate.Missing(v)
		return gin.H{
			"all":        all,
			"top":        all.Top(aggregate.DefaultTopMissing),
			"tag_fields": aggregate.MissingTagFields(v),
		}, nil
	})
}

func (s *Server) handleCompleteness(c *gin.Context) {
	s.withView(c, snapshotOriginal, func(v model.View) (any, error) {
		report := aggregate.Completeness(v)
		return gin.H{
			"report":       report,
			"distribution": report.ScoreDistribution(),
			"fields":       aggregate.FieldsCompleteness(v, model.TagFields),
		}, nil
	})
}

func (s *Server) handleCostByTag(c *gin.Context) {
	s.withView(c, snapshotOriginal, func(v model.View) (any, error) {
		return aggregate.CostByTag(v), nil
	})
}

func (s *Server) handleCostBy(c *gin.Context) {
	var uri groupColumnURI
	if err := c.ShouldBindUri(&uri); err != nil {
		abortBadRequest(c, err)
		return
	}
	s.withView(c, snapshotOriginal, func(v model.View) (any, error) {
		groups, err := aggregate.CostBy(v, uri.Column)
		if err != nil {
			return nil, fmt.Errorf("cost by %q: %w", uri.Column, err)
		}
		return gin.H{"column": uri.Column, "groups": groups}, nil
	})
}

func (s *Server) handleCrosstab(c *gin.Context) {
	s.withView(c, snapshotOriginal, func(v model.View) (any, error) {
		pairs, err := aggregate.CostByPair(v, model.ColEnvironment, model.ColTagged)
		if err != nil {
			return nil, fmt.Errorf("environment crosstab: %w", err)
		}
		environments, err := aggregate.CostBy(v, model.ColEnvironment)
		if err != nil {
			return nil, fmt.Errorf("environment crosstab: %w", err)
		}
		return gin.H{"pairs": pairs, "environments": environments}, nil
	})
}

// withView runs an aggregate over the filtered snapshot and writes it as JSON
func (s *Server) withView(c *gin.Context, fallback string, fn func(model.View) (any, error)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, _, ok := s.view(c, fallback)
	if !ok {
		return
	}
	body, err := fn(v)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

// handleUntagged lists the still-untagged rows of the edited snapshot
func (s *Server) handleUntagged(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var q viewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBadRequest(c, err)
		return
	}
	if !s.session.Loaded() {
		abortWithError(c, model.ErrNoSession)
		return
	}

	q.Tagged = model.TaggedNo
	edited := s.session.Edited()
	c.JSON(http.StatusOK, rows(snapshotEdited, edited.Len(), filter.Apply(edited, q.Predicates)))
}

// handleApply applies one edit batch to the edited snapshot
func (s *Server) handleApply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}

	s.mu.Lock()
	result, err := s.session.Apply(c.Request.Context(), req.Edits)
	s.mu.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleCompare reports the remediation impact so far
func (s *Server) handleCompare(c *gin.Context) {
	s.mu.RLock()
	report, err := s.session.Compare()
	s.mu.RUnlock()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleExport streams one of the exports as a CSV attachment.
// The untagged export honours the filter query like the untagged listing.
func (s *Server) handleExport(c *gin.Context) {
	var uri exportURI
	if err := c.ShouldBindUri(&uri); err != nil {
		abortBadRequest(c, err)
		return
	}
	var q viewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBadRequest(c, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.session.Loaded() {
		abortWithError(c, model.ErrNoSession)
		return
	}

	var (
		v        model.View
		fileName string
	)
	switch uri.Kind {
	case "untagged":
		q.Tagged = model.TaggedNo
		v = filter.Apply(s.session.Edited(), q.Predicates)
		fileName = export.UntaggedFileName
	case "edited":
		v = s.session.Edited()
		fileName = export.EditedFileName
	default:
		v = s.session.Original()
		fileName = export.OriginalFileName
	}

	body := export.String(v)
	s.logger.Debug("Serving export",
		zap.String("kind", uri.Kind),
		zap.Int("rows", v.Len()))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, export.ContentType, []byte(body))
}
