package api

import (
	"encoding/hex"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/isa-sentinel/internal/accel"
	"github.com/rawblock/isa-sentinel/internal/audit"
	"github.com/rawblock/isa-sentinel/internal/entropy"
	"github.com/rawblock/isa-sentinel/internal/policy"
	"github.com/rawblock/isa-sentinel/internal/ring"
	"github.com/rawblock/isa-sentinel/internal/state"
	"github.com/rawblock/isa-sentinel/internal/store"
	"github.com/rawblock/isa-sentinel/pkg/models"
)

// maxEventBytes bounds the size of a single event payload accepted over
// the wire, to prevent unbounded PRF input from a single caller.
const maxEventBytes = 4096

// Handler wires the live state, the configured policy and constraint
// sets, the quarantine registry, the audit trail and the verdict
// broadcaster into one set of HTTP handlers.
type Handler struct {
	live       *state.Locked
	referenceM sync.Mutex
	reference  []ring.Element

	policies    *policy.PolicySet
	constraints *policy.ConstraintSet
	quarantine  *policy.QuarantineRegistry
	audit       *audit.Manager
	broadcaster *VerdictBroadcaster
	entropy     *entropy.Source
	store       *store.Store
	wsHub       *Hub

	shadowM sync.Mutex
	shadow  *policy.ShadowComparator
}

// NewHandler wires a Handler. reference is the honest baseline state
// vector against which divergence is measured; it is copied.
func NewHandler(
	live *state.Locked,
	reference []ring.Element,
	policies *policy.PolicySet,
	constraints *policy.ConstraintSet,
	quarantine *policy.QuarantineRegistry,
	auditMgr *audit.Manager,
	broadcaster *VerdictBroadcaster,
	src *entropy.Source,
	st *store.Store,
	wsHub *Hub,
) *Handler {
	refCopy := make([]ring.Element, len(reference))
	copy(refCopy, reference)
	return &Handler{
		live:        live,
		reference:   refCopy,
		policies:    policies,
		constraints: constraints,
		quarantine:  quarantine,
		audit:       auditMgr,
		broadcaster: broadcaster,
		entropy:     src,
		store:       st,
		wsHub:       wsHub,
	}
}

// SetupRouter wires every route onto a fresh gin.Engine, grounded on the
// same CORS/auth/rate-limit layering as the rest of this codebase's
// transport layer.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", h.handleHealth)
		pub.GET("/stream", h.wsHub.Subscribe)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(120, 20).Middleware())
	{
		auth.POST("/events", h.handleEvent)
		auth.GET("/divergence", h.handleDivergence)
		auth.POST("/recovery", h.handleRecovery)
		auth.GET("/quarantine", h.handleListQuarantine)
		auth.GET("/audit", h.handleListAudit)
	}

	return r
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"dimensions":  h.live.N(),
		"dbConnected": h.store != nil,
	})
}

// handleEvent folds one event into a named axis and returns the fresh
// divergence verdict against the reference baseline.
func (h *Handler) handleEvent(c *gin.Context) {
	var req models.EventEnvelope
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Dimension < 0 || req.Dimension >= h.live.N() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dimension out of range"})
		return
	}

	event, err := hex.DecodeString(req.EventHex)
	if err != nil || len(event) > maxEventBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or oversized eventHex"})
		return
	}
	var ent []byte
	if req.EntropyHex != "" {
		ent, err = hex.DecodeString(req.EntropyHex)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entropyHex"})
			return
		}
	} else if h.entropy != nil {
		ent, _ = h.entropy.Bytes(16)
	}

	deltaT := req.DeltaT
	if deltaT == 0 && h.entropy != nil {
		deltaT = h.entropy.DeltaT()
	}

	verdict := h.FoldAndEvaluate(req.Dimension, event, ent, deltaT)
	c.JSON(http.StatusOK, verdict)
}

// SetShadow wires an optional ShadowComparator, run alongside every
// evaluation for observation only; it never alters a returned verdict.
// Passing nil disables shadow comparison.
func (h *Handler) SetShadow(s *policy.ShadowComparator) {
	h.shadowM.Lock()
	defer h.shadowM.Unlock()
	h.shadow = s
}

// FoldAndEvaluate folds one event into dim, evaluates the resulting
// divergence against the reference baseline, reconciles the quarantine
// registry, and broadcasts the verdict. It is the shared path between
// the REST event endpoint and any out-of-band ingest loop folding
// events into the same live state.
func (h *Handler) FoldAndEvaluate(dim int, event, entropy []byte, deltaT uint64) models.VerdictReport {
	h.live.Fold(dim, event, entropy, deltaT)

	verdict := h.evaluate()
	h.reconcileQuarantine(verdict)
	if h.broadcaster != nil {
		h.broadcaster.Emit(verdict, anySafetyRelevant(verdict.ThresholdViolations))
	}
	return verdict
}

// anySafetyRelevant reports whether any threshold violation in
// violations came from a policy marked SafetyRelevant — the gate for
// firing a webhook, as distinct from "any violation occurred at all".
func anySafetyRelevant(violations []models.ViolationReport) bool {
	for _, v := range violations {
		if v.SafetyRelevant {
			return true
		}
	}
	return false
}

// reconcileQuarantine adds every Quarantine-strategy axis currently
// violating its threshold to the registry, and releases any such axis
// that is no longer violating — keeping the registry's contents in
// sync with live threshold state rather than permanently empty.
func (h *Handler) reconcileQuarantine(verdict models.VerdictReport) {
	if h.quarantine == nil || h.policies == nil {
		return
	}
	violated := make(map[int]bool, len(verdict.ThresholdViolations))
	for _, v := range verdict.ThresholdViolations {
		violated[v.Axis] = true
	}
	for _, p := range h.policies.Policies() {
		if p.Strategy != policy.Quarantine {
			continue
		}
		if violated[p.Axis] {
			h.quarantine.Add(p.Axis, "axis "+p.Name+" exceeded threshold under Quarantine strategy", "high")
		} else {
			h.quarantine.Remove(p.Axis)
		}
	}
}

// handleDivergence is a read-only evaluation against the reference
// baseline; it never folds an event.
func (h *Handler) handleDivergence(c *gin.Context) {
	c.JSON(http.StatusOK, h.evaluate())
}

func (h *Handler) evaluate() models.VerdictReport {
	h.referenceM.Lock()
	ref := h.reference
	h.referenceM.Unlock()

	snap := h.live.Snapshot()
	if len(snap) != len(ref) {
		panic("api: live state and reference baseline have diverged in dimension count")
	}
	pairs := make([]accel.Pair, len(ref))
	for i := range ref {
		pairs[i] = accel.Pair{A: ref[i], B: snap[i]}
	}
	divVec := accel.BatchDistance(pairs)

	h.shadowM.Lock()
	shadow := h.shadow
	h.shadowM.Unlock()
	if shadow != nil {
		shadow.Compare(divVec)
	}

	hexVec := make([]string, len(divVec))
	for i, e := range divVec {
		b := e.Bytes()
		hexVec[i] = hex.EncodeToString(b[:])
	}

	var thViolations []models.ViolationReport
	var aggregate float64
	if h.policies != nil {
		for _, v := range h.policies.EvaluateThresholds(divVec) {
			thViolations = append(thViolations, models.ViolationReport{
				Axis:           v.Axis,
				Policy:         v.Policy.Name,
				Strategy:       v.Policy.Strategy.String(),
				SafetyRelevant: v.Policy.SafetyRelevant,
			})
		}
		aggregate = policy.Aggregate(h.policies.Weights(), divVec)
	}

	var cViolations []models.ConstraintViolationReport
	if h.constraints != nil {
		for _, v := range h.constraints.EvaluateConstraints(divVec) {
			cViolations = append(cViolations, models.ConstraintViolationReport{
				Index:       v.Index,
				Description: v.Describe(),
			})
		}
	}

	return models.VerdictReport{
		Timestamp:            time.Now(),
		DivergenceVectorHex:  hexVec,
		ThresholdViolations:  thViolations,
		ConstraintViolations: cViolations,
		AggregateScore:       aggregate,
	}
}

// handleRecovery applies a caller-supplied convergence vector to the
// live state and records an audit entry of the pre/post state.
func (h *Handler) handleRecovery(c *gin.Context) {
	var req struct {
		ConvergenceVectorHex []string `json:"convergenceVectorHex"`
		Reason               string   `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.ConvergenceVectorHex) != h.live.N() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "convergence vector length does not match dimension count"})
		return
	}

	conv := make([]ring.Element, len(req.ConvergenceVectorHex))
	for i, s := range req.ConvergenceVectorHex {
		raw, err := hex.DecodeString(s)
		if err != nil || len(raw) != ring.Size {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid convergence vector encoding"})
			return
		}
		conv[i] = ring.FromBytes(raw)
	}

	pre := h.live.Snapshot()
	h.live.ApplyConvergenceVector(conv)
	post := h.live.Snapshot()

	rec := h.audit.Append(pre, conv, post, req.Reason)

	if h.store != nil {
		if err := h.store.SaveRecoveryAudit(c.Request.Context(), rec); err != nil {
			c.JSON(http.StatusOK, gin.H{"id": rec.ID, "warning": "audit not persisted: " + err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"id": rec.ID})
}

func (h *Handler) handleListQuarantine(c *gin.Context) {
	if h.quarantine == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []models.QuarantineEntryReport{}})
		return
	}
	entries := h.quarantine.ListAll()
	out := make([]models.QuarantineEntryReport, len(entries))
	for i, e := range entries {
		out[i] = models.QuarantineEntryReport{
			Axis:     e.Axis,
			Reason:   e.Reason,
			Severity: e.Severity,
			AddedAt:  e.AddedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func (h *Handler) handleListAudit(c *gin.Context) {
	records := h.audit.ListAll()
	out := make([]models.RecoveryAuditReport, len(records))
	for i, rec := range records {
		out[i] = models.RecoveryAuditReport{
			ID:                    rec.ID,
			Timestamp:             rec.Timestamp,
			PreStateVectorHex:     hexVector(rec.PreStateVector),
			ConvergenceVectorHex:  hexVector(rec.ConvergenceVector),
			PostStateVectorHex:    hexVector(rec.PostStateVector),
			Reason:                rec.Reason,
		}
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

func hexVector(v []ring.Element) []string {
	out := make([]string, len(v))
	for i, e := range v {
		b := e.Bytes()
		out[i] = hex.EncodeToString(b[:])
	}
	return out
}
