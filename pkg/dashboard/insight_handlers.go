package dashboard

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/mhrivnak/modeldash/pkg/client"
)

// ModelSummary is one row of the dashboard overview.
type ModelSummary struct {
	ID      client.ID           `json:"id"`
	Name    string              `json:"name"`
	Metrics client.ModelMetrics `json:"metrics,omitempty"`
	Cost    *float64            `json:"cost,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// dashboardHandler summarizes the catalog by status and model type.
func (s *Server) dashboardHandler(c *gin.Context) {
	models, err := s.api.ListModels(c.Request.Context())
	if err != nil {
		s.respondClientError(c, err)
		return
	}

	byStatus := map[string]int{}
	byType := map[string]int{}
	complete := 0
	for _, m := range models {
		if !m.Complete() {
			continue
		}
		complete++
		status := m.Status
		if status == "" {
			status = "unknown"
		}
		byStatus[status]++
		byType[m.ModelType]++
	}

	c.JSON(http.StatusOK, gin.H{
		"models":     complete,
		"incomplete": len(models) - complete,
		"by_status":  byStatus,
		"by_type":    byType,
	})
}

// analyticsHandler fetches metrics for every listed model in parallel.
func (s *Server) analyticsHandler(c *gin.Context) {
	summaries, err := s.collectMetrics(c.Request.Context())
	if err != nil {
		s.respondClientError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"models": summaries,
		"failed": countFailed(summaries),
	})
}

// costHandler adds up every top-level numeric metric whose name mentions
// cost. The remote API owns the numbers; this view only totals them.
func (s *Server) costHandler(c *gin.Context) {
	summaries, err := s.collectMetrics(c.Request.Context())
	if err != nil {
		s.respondClientError(c, err)
		return
	}

	var total float64
	for i := range summaries {
		if summaries[i].Error != "" {
			continue
		}
		cost := costOf(summaries[i].Metrics)
		summaries[i].Cost = &cost
		total += cost
		summaries[i].Metrics = nil
	}
	c.JSON(http.StatusOK, gin.H{
		"models":     summaries,
		"total_cost": total,
		"failed":     countFailed(summaries),
	})
}

// collectMetrics lists the catalog and fetches metrics for each complete model
// with at most dashboard.metrics_workers requests in flight. Per-model failures
// are reported in the summary; an AuthFailure ends the whole view because the
// session is gone.
func (s *Server) collectMetrics(ctx context.Context) ([]ModelSummary, error) {
	models, err := s.api.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]ModelSummary, 0, len(models))
	for _, m := range models {
		if m.Complete() {
			summaries = append(summaries, ModelSummary{ID: m.ID, Name: m.Name})
		}
	}

	workers := s.config.Dashboard.MetricsWorkers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range summaries {
		i := i
		g.Go(func() error {
			metrics, err := s.api.GetModelMetrics(gctx, summaries[i].ID.String())
			if err == nil {
				summaries[i].Metrics = metrics
				return nil
			}
			if errors.Is(err, client.ErrAuthFailure) {
				return err
			}
			summaries[i].Error = err.Error()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

func costOf(metrics client.ModelMetrics) float64 {
	var total float64
	for key, value := range metrics {
		if !strings.Contains(strings.ToLower(key), "cost") {
			continue
		}
		if n, ok := value.(float64); ok {
			total += n
		}
	}
	return total
}

func countFailed(summaries []ModelSummary) int {
	n := 0
	for _, s := range summaries {
		if s.Error != "" {
			n++
		}
	}
	return n
}
