package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/config"
	"go-bpm/internal/features/events"
	"go-bpm/internal/features/process"
	"go-bpm/internal/features/structure"
	"go-bpm/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Report counts the repairs of one pass.
type Report struct {
	Added    map[models.StructureKind]int `json:"added"`
	Removed  map[models.StructureKind]int `json:"removed"`
	Tenants  int                          `json:"tenants"`
	Duration string                       `json:"duration"`
}

func (r Report) Total() int {
	n := 0
	for _, v := range r.Added {
		n += v
	}
	for _, v := range r.Removed {
		n += v
	}
	return n
}

// TenantLocker is the per-tenant lock shared with structure and process writes.
type TenantLocker interface {
	LockTenant(tenantID primitive.ObjectID) (unlock func())
}

// Reconciler repairs node/process links left one-sided by a partial failure.
// Role links are repaired towards the union of both sides. The department
// link is single-valued, so the process side wins. Links to documents that
// no longer exist, or that belong to another tenant, are dropped.
//
// The bulk snapshots only nominate candidates. Each repair is decided again
// from fresh reads taken under the tenant lock.
type Reconciler struct {
	nodes     map[models.StructureKind]structure.Repository
	processes process.Repository
	locker    TenantLocker
	publisher events.Publisher
	logger    *zap.Logger
	schedule  string

	mu        sync.Mutex
	scheduler *cron.Cron
}

func NewReconciler(repos *structure.Repositories, processes process.Repository, locker TenantLocker, publisher events.Publisher, logger *zap.Logger, cfg *config.Config) *Reconciler {
	return &Reconciler{
		nodes: map[models.StructureKind]structure.Repository{
			models.StructureRoles:       repos.Roles,
			models.StructureDepartments: repos.Departments,
		},
		processes: processes,
		locker:    locker,
		publisher: publisher,
		logger:    logger.With(zap.String("component", "reconciler")),
		schedule:  cfg.ReconcileSchedule,
	}
}

// Run performs one full pass. Concurrent calls wait for the running pass.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	report := &Report{
		Added:   map[models.StructureKind]int{},
		Removed: map[models.StructureKind]int{},
	}

	procs, err := r.processes.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load processes: %w", err)
	}
	byID := make(map[primitive.ObjectID]*process.Process, len(procs))
	for i := range procs {
		byID[procs[i].ID] = &procs[i]
	}

	touched := map[primitive.ObjectID]bool{}
	for _, kind := range []models.StructureKind{models.StructureRoles, models.StructureDepartments} {
		if err := r.reconcileKind(ctx, kind, byID, report, touched); err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", kind, err)
		}
	}

	for tenantID := range touched {
		r.publisher.Publish(events.Event{Type: events.LinksReconciled, TenantID: tenantID})
	}
	report.Tenants = len(touched)
	report.Duration = time.Since(start).String()

	if report.Total() > 0 {
		r.logger.Warn("assignment links repaired",
			zap.Any("added", report.Added),
			zap.Any("removed", report.Removed),
			zap.Int("tenants", report.Tenants),
		)
	} else {
		r.logger.Debug("assignment links consistent", zap.String("duration", report.Duration))
	}
	return report, nil
}

// linkedNodes is the process side of a link for kind.
func linkedNodes(kind models.StructureKind, p *process.Process) []primitive.ObjectID {
	if kind == models.StructureRoles {
		return p.AssignedRoles
	}
	if p.Department != nil {
		return []primitive.ObjectID{*p.Department}
	}
	return nil
}

// halfLink is a node/process pair that one snapshot links and the other does not.
type halfLink struct {
	tenantID  primitive.ObjectID
	nodeID    primitive.ObjectID
	processID primitive.ObjectID
}

func (r *Reconciler) reconcileKind(ctx context.Context, kind models.StructureKind, procs map[primitive.ObjectID]*process.Process, report *Report, touched map[primitive.ObjectID]bool) error {
	nodes, err := r.nodes[kind].FindAllNodes(ctx)
	if err != nil {
		return err
	}
	nodeByID := make(map[primitive.ObjectID]*structure.Node, len(nodes))
	for i := range nodes {
		nodeByID[nodes[i].ID] = &nodes[i]
	}

	var candidates []halfLink
	seen := map[halfLink]bool{}
	nominate := func(h halfLink) {
		if !seen[h] {
			seen[h] = true
			candidates = append(candidates, h)
		}
	}

	for _, node := range nodes {
		for _, pid := range node.AssignedProcesses {
			p, ok := procs[pid]
			if !ok || p.Creator != node.Owner || !slices.Contains(linkedNodes(kind, p), node.ID) {
				nominate(halfLink{tenantID: node.Owner, nodeID: node.ID, processID: pid})
			}
		}
	}
	for _, p := range procs {
		for _, nodeID := range linkedNodes(kind, p) {
			node, ok := nodeByID[nodeID]
			if !ok || node.Owner != p.Creator || !slices.Contains(node.AssignedProcesses, p.ID) {
				nominate(halfLink{tenantID: p.Creator, nodeID: nodeID, processID: p.ID})
			}
		}
	}

	for _, h := range candidates {
		added, removed, err := r.repair(ctx, kind, h)
		if err != nil {
			return err
		}
		if added+removed == 0 {
			continue
		}
		report.Added[kind] += added
		report.Removed[kind] += removed
		metrics.ReconcileRepairs.WithLabelValues(string(kind)).Add(float64(added + removed))
		touched[h.tenantID] = true
	}
	return nil
}

// repair re-reads both documents of h under the tenant lock and fixes the
// link only if it is still one-sided.
func (r *Reconciler) repair(ctx context.Context, kind models.StructureKind, h halfLink) (added, removed int, err error) {
	unlock := r.locker.LockTenant(h.tenantID)
	defer unlock()

	repo := r.nodes[kind]
	node, err := repo.FindNode(ctx, h.tenantID, h.nodeID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return 0, 0, err
		}
		node = nil
	}
	p, err := r.processes.FindByID(ctx, h.processID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return 0, 0, err
		}
		p = nil
	}
	if p != nil && p.Creator != h.tenantID {
		p = nil
	}

	nodeHas := node != nil && slices.Contains(node.AssignedProcesses, h.processID)
	processHas := p != nil && slices.Contains(linkedNodes(kind, p), h.nodeID)
	if nodeHas == processHas {
		return 0, 0, nil
	}

	nodeIDs := []primitive.ObjectID{h.nodeID}
	processIDs := []primitive.ObjectID{h.processID}
	switch {
	case nodeHas && p != nil && kind == models.StructureRoles:
		if _, err := r.processes.Link(ctx, kind, h.nodeID, processIDs); err != nil {
			return 0, 0, err
		}
		return 1, 0, nil
	case nodeHas:
		return 0, 1, repo.PullProcesses(ctx, nodeIDs, processIDs)
	case node == nil:
		return 0, 1, r.processes.Unlink(ctx, kind, h.nodeID, processIDs)
	default:
		return 1, 0, repo.AddProcesses(ctx, nodeIDs, processIDs)
	}
}

// Start schedules Run on the configured cron schedule.
func (r *Reconciler) Start() error {
	if r.schedule == "" || r.schedule == "off" {
		r.logger.Info("reconciler disabled")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			r.logger.Error("reconcile pass failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", r.schedule, err)
	}
	c.Start()
	r.scheduler = c
	r.logger.Info("reconciler scheduled", zap.String("schedule", r.schedule))
	return nil
}

func (r *Reconciler) Stop() {
	if r.scheduler != nil {
		<-r.scheduler.Stop().Done()
	}
}
