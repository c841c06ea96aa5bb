package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gavel-mod/gavel/ledger"
	"github.com/gavel-mod/gavel/report"
	"github.com/nbd-wtf/go-nostr"

	"github.com/labstack/echo/v4"
)

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (srv *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(200, map[string]string{"status": "ok"})
}

func (srv *Server) handleReportContext(c echo.Context) error {
	ctx := c.Request().Context()
	reportID := c.Param("id")

	if cached, err := srv.cache.Get(ctx, "reportctx", reportID); err == nil && cached != "" {
		return c.JSONBlob(200, []byte(cached))
	}

	evts, err := srv.events.Query(ctx, nostr.Filter{
		IDs:   []string{reportID},
		Kinds: []int{nostr.KindReporting},
		Limit: 1,
	})
	if err != nil {
		return c.JSON(502, GenericError{Error: "StoreUnavailable", Message: err.Error()})
	}
	if len(evts) == 0 {
		return c.JSON(404, GenericError{Error: "ReportNotFound", Message: fmt.Sprintf("no report event %s", reportID)})
	}

	rc, err := srv.contexts.BuildContext(ctx, evts[0])
	if err != nil {
		if errors.Is(err, report.ErrNoTarget) {
			return c.JSON(400, GenericError{Error: "NoReportTarget", Message: err.Error()})
		}
		return c.JSON(502, GenericError{Error: "ContextAggregationFailed", Message: err.Error()})
	}

	if blob, err := json.Marshal(rc); err == nil {
		if err := srv.cache.Set(ctx, "reportctx", reportID, string(blob)); err != nil {
			srv.logger.Warn("report context cache write failed", "err", err)
		}
	}
	return c.JSON(200, rc)
}

func (srv *Server) handleUserStats(c echo.Context) error {
	ctx := c.Request().Context()
	pubkey := c.Param("pubkey")

	stats, err := srv.reputation.UserStats(ctx, pubkey)
	if err != nil {
		return c.JSON(502, GenericError{Error: "StatsFetchFailed", Message: err.Error()})
	}
	profile, err := srv.reputation.Profile(ctx, pubkey)
	if err != nil {
		srv.logger.Warn("profile fetch failed", "pubkey", pubkey, "err", err)
	}
	return c.JSON(200, map[string]any{
		"stats":   stats,
		"profile": profile,
	})
}

func (srv *Server) handleModStatus(c echo.Context) error {
	ctx := c.Request().Context()
	pubkey := c.QueryParam("pubkey")
	eventID := c.QueryParam("event")

	out := map[string]any{
		"degraded": srv.modStatus.Degraded(),
	}
	if pubkey != "" {
		out["isBanned"] = srv.modStatus.IsBanned(ctx, pubkey)
		out["banReason"] = srv.modStatus.BanReason(ctx, pubkey)
	}
	if eventID != "" {
		deleted, reason := srv.modStatus.EventStatus(ctx, eventID)
		out["isDeleted"] = deleted
		out["deleteReason"] = reason
	}
	return c.JSON(200, out)
}

func (srv *Server) handleModStatusRefetch(c echo.Context) error {
	srv.modStatus.Refetch(c.Request().Context())
	return c.JSON(200, map[string]string{"status": "ok"})
}

type blockStatusRequest struct {
	Hashes []string `json:"hashes"`
}

func (srv *Server) handleBlockStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req blockStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, GenericError{Error: "BadRequest", Message: err.Error()})
	}
	batch, err := srv.blockStatus.Lookup(ctx, req.Hashes)
	if err != nil {
		return c.JSON(502, GenericError{Error: "BlockStatusFetchFailed", Message: err.Error()})
	}

	statuses := make(map[string]any, len(req.Hashes))
	for _, h := range req.Hashes {
		if s, ok := batch.Get(h); ok {
			statuses[h] = map[string]any{"action": s.Action, "isBlocked": s.IsBlocked}
		}
	}
	return c.JSON(200, map[string]any{
		"statuses":       statuses,
		"blockedCount":   batch.BlockedCount(),
		"unblockedCount": batch.UnblockedCount(),
	})
}

func (srv *Server) handleQueue(c echo.Context) error {
	ctx := c.Request().Context()
	hideResolved := c.QueryParam("hideResolved") != "false"

	reports, err := srv.events.Query(ctx, nostr.Filter{
		Kinds: []int{nostr.KindReporting},
		Limit: 200,
	})
	if err != nil {
		return c.JSON(502, GenericError{Error: "StoreUnavailable", Message: err.Error()})
	}

	// resolve each report to its target, de-duplicating while preserving
	// first-seen order
	var targetIDs []string
	seen := make(map[string]bool)
	byTarget := make(map[string]*report.Target)
	for _, evt := range reports {
		target, err := report.ResolveTarget(evt)
		if err != nil {
			continue
		}
		if seen[target.Value] {
			continue
		}
		seen[target.Value] = true
		targetIDs = append(targetIDs, target.Value)
		byTarget[target.Value] = target
	}

	q, err := srv.ledger.PartitionQueue(ctx, targetIDs, ledger.QueueOpts{HideResolved: hideResolved})
	if err != nil {
		return c.JSON(500, GenericError{Error: "QueuePartitionFailed", Message: err.Error()})
	}

	describe := func(ids []string) []map[string]any {
		out := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			target := byTarget[id]
			out = append(out, map[string]any{
				"targetId":   id,
				"targetType": target.Type,
				"category":   target.Category,
			})
		}
		return out
	}
	return c.JSON(200, map[string]any{
		"default": describe(q.Default),
		"pending": describe(q.Pending),
	})
}

type decisionRequest struct {
	TargetType        string `json:"targetType"`
	TargetID          string `json:"targetId"`
	Action            string `json:"action"`
	Reason            string `json:"reason"`
	ModeratorIdentity string `json:"moderatorIdentity"`
	ReportID          string `json:"reportId"`
	ReporterIdentity  string `json:"reporterIdentity"`
}

func (srv *Server) handleAppendDecision(c echo.Context) error {
	ctx := c.Request().Context()

	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, GenericError{Error: "BadRequest", Message: err.Error()})
	}
	req.TargetID = strings.TrimSpace(req.TargetID)

	row, err := srv.ledger.AppendDecision(ctx, ledger.Decision{
		TargetType:        req.TargetType,
		TargetID:          req.TargetID,
		Action:            req.Action,
		Reason:            req.Reason,
		ModeratorIdentity: req.ModeratorIdentity,
		ReportID:          req.ReportID,
		ReporterIdentity:  req.ReporterIdentity,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrTargetSyncFailed) {
			// the decision is durable; repair the derived state and report
			// the partial failure if the repair also fails
			if rerr := srv.ledger.RecomputeTarget(ctx, req.TargetID); rerr == nil {
				srv.logger.Warn("target state repaired after failed sync", "target", req.TargetID)
			} else {
				return c.JSON(500, GenericError{Error: "TargetSyncFailed", Message: err.Error()})
			}
		} else if row == nil {
			return c.JSON(500, GenericError{Error: "DecisionWriteFailed", Message: err.Error()})
		}
	}
	return c.JSON(http.StatusCreated, map[string]any{"id": row.ID})
}
