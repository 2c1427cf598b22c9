package spatial

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/couchcryptid/climate-intervention-planner/internal/catalog"
	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/features"
)

const (
	// DefaultGridSpacing is the candidate grid step in degrees.
	DefaultGridSpacing = 0.5

	// MaxGridPoints bounds the candidate grid of a single request.
	MaxGridPoints = 200_000

	// SiteCoverageKm2 is the area credited to each selected site.
	SiteCoverageKm2 = 100.0

	minSuitability = 0.5
)

var planNamespace = uuid.MustParse("6f1c1f0e-4b9e-5d0a-9a53-8f2d6c1e7a40")

// Request describes one optimization.
type Request struct {
	Region           domain.Region      `json:"target_region"`
	InterventionType string             `json:"intervention_type"`
	Budget           float64            `json:"budget"`
	Constraints      domain.Constraints `json:"constraints"`
	// GridSpacing overrides the optimizer's spacing in degrees when positive.
	GridSpacing float64 `json:"grid_spacing,omitempty"`
}

// Optimizer runs the generate, constrain, score and select stages.
type Optimizer struct {
	catalog *catalog.Catalog
	spacing float64
	cache   *PlanCache
}

// NewOptimizer creates an Optimizer. spacing <= 0 uses DefaultGridSpacing; a
// nil cache disables caching.
func NewOptimizer(cat *catalog.Catalog, spacing float64, cache *PlanCache) *Optimizer {
	if cat == nil {
		cat = catalog.Default()
	}
	if spacing <= 0 {
		spacing = DefaultGridSpacing
	}
	return &Optimizer{catalog: cat, spacing: spacing, cache: cache}
}

// Optimize builds a deployment plan. The summed cost of the selected sites never
// exceeds the budget; a budget too small for any candidate yields an empty plan
// flagged Infeasible rather than an error.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (domain.DeploymentPlan, error) {
	iv, ok := o.catalog.Lookup(req.InterventionType)
	if !ok {
		return domain.DeploymentPlan{}, &domain.UnknownCategoryError{Field: features.FieldInterventionType, Value: req.InterventionType}
	}
	spacing := o.spacing
	if req.GridSpacing > 0 {
		spacing = req.GridSpacing
	}
	if err := validate(req, spacing); err != nil {
		return domain.DeploymentPlan{}, err
	}

	key := cacheKey(req, spacing)
	if plan, ok := o.cache.Get(key); ok {
		plan.CacheHit = true
		return plan, nil
	}

	candidates, err := o.generate(ctx, req.Region, spacing, iv.Site)
	if err != nil {
		return domain.DeploymentPlan{}, err
	}
	constrained := constrain(candidates, req.Constraints)
	for i := range constrained {
		o.score(&constrained[i], iv.Site)
	}
	sites := selectSites(constrained, req.Budget)

	plan := domain.DeploymentPlan{
		ID:               uuid.NewSHA1(planNamespace, []byte(key)).String(),
		InterventionType: req.InterventionType,
		Region:           req.Region,
		Budget:           req.Budget,
		Sites:            sites,
		CandidateCount:   len(candidates),
		ConstrainedCount: len(constrained),
		Infeasible:       len(constrained) > 0 && len(sites) == 0,
	}
	for _, s := range sites {
		plan.TotalCost += s.EstimatedCost
		plan.TotalImpact += s.EstimatedImpact
	}
	plan.RemainingBudget = req.Budget - plan.TotalCost
	plan.CoverageAreaKm2 = SiteCoverageKm2 * float64(len(sites))
	plan.AverageDistanceKm = averageDistance(sites)
	if len(sites) > 0 {
		plan.SpatialEfficiency = plan.TotalImpact / math.Max(1, plan.CoverageAreaKm2)
	}

	o.cache.Put(key, plan)
	return plan, nil
}

func validate(req Request, spacing float64) error {
	r := req.Region
	for _, v := range []float64{r.LatMin, r.LatMax, r.LonMin, r.LonMax, req.Budget, spacing} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite request value", domain.ErrInvalidRegion)
		}
	}
	if r.LatMin < -90 || r.LatMax > 90 || r.LonMin < -180 || r.LonMax > 180 {
		return fmt.Errorf("%w: bounds %+v outside the globe", domain.ErrInvalidRegion, r)
	}
	if r.LatMin > r.LatMax || r.LonMin > r.LonMax {
		return fmt.Errorf("%w: min exceeds max in %+v", domain.ErrInvalidRegion, r)
	}
	rows, cols := gridDims(r, spacing)
	if rows*cols > MaxGridPoints {
		return fmt.Errorf("%w: %.0f grid points exceed the limit of %d", domain.ErrInvalidRegion, rows*cols, MaxGridPoints)
	}
	return nil
}

// gridDims counts grid rows and columns. Points are stepped by index from the
// minimum corner; the epsilon keeps a bound that lands on the grid inclusive.
func gridDims(r domain.Region, spacing float64) (rows, cols float64) {
	rows = math.Floor((r.LatMax-r.LatMin)/spacing+1e-9) + 1
	cols = math.Floor((r.LonMax-r.LonMin)/spacing+1e-9) + 1
	return rows, cols
}

// generate walks the grid and keeps points whose zone suitability, discounted
// for elevation, exceeds minSuitability.
func (o *Optimizer) generate(ctx context.Context, r domain.Region, spacing float64, site catalog.SiteProfile) ([]domain.CandidateSite, error) {
	rowsF, colsF := gridDims(r, spacing)
	rows, cols := int(rowsF), int(colsF)

	var out []domain.CandidateSite
	for i := 0; i < rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lat := r.LatMin + float64(i)*spacing
		zone := ClimateZone(lat)
		zoneScore := site.ZoneSuitabilityFor(zone)
		for j := 0; j < cols; j++ {
			lon := r.LonMin + float64(j)*spacing
			elevation := Elevation(lat, lon)
			score := math.Min(1, zoneScore*elevationFactor(elevation))
			if score <= minSuitability {
				continue
			}
			out = append(out, domain.CandidateSite{
				ID:               fmt.Sprintf("grid_%.4f_%.4f", lat, lon),
				Geo:              domain.Geo{Lat: lat, Lon: lon},
				ClimateZone:      zone,
				GeographicRegion: GeographicRegion(lat, lon),
				Elevation:        elevation,
				LandCover:        LandCover(lat),
				SuitabilityScore: score,
			})
		}
	}
	return out, nil
}

// constrain drops every site that fails any constraint.
func constrain(sites []domain.CandidateSite, c domain.Constraints) []domain.CandidateSite {
	out := make([]domain.CandidateSite, 0, len(sites))
	for _, s := range sites {
		if c.MaxElevation != nil && s.Elevation > *c.MaxElevation {
			continue
		}
		if len(c.AllowedLandCovers) > 0 && !slices.Contains(c.AllowedLandCovers, s.LandCover) {
			continue
		}
		if c.MinDistanceKm != nil && tooClose(s.Geo, c.ExistingDeployments, *c.MinDistanceKm) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func tooClose(p domain.Geo, existing []domain.Geo, minKm float64) bool {
	for _, e := range existing {
		if HaversineKm(p, e) < minKm {
			return true
		}
	}
	return false
}

func (o *Optimizer) score(s *domain.CandidateSite, site catalog.SiteProfile) {
	s.EstimatedCost = site.BaseCost * costMultiplier(s.Geo.Lat)
	s.EstimatedImpact = site.BaseImpact * o.catalog.ZoneImpact(s.ClimateZone)
	s.Efficiency = s.EstimatedImpact / math.Max(1, s.EstimatedCost)
}

// selectSites adds sites in descending efficiency while the running total stays
// within budget. Sites that do not fit are skipped, not a stopping point.
func selectSites(sites []domain.CandidateSite, budget float64) []domain.CandidateSite {
	ordered := slices.Clone(sites)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Efficiency != ordered[j].Efficiency {
			return ordered[i].Efficiency > ordered[j].Efficiency
		}
		return ordered[i].ID < ordered[j].ID
	})

	selected := []domain.CandidateSite{}
	total := 0.0
	for _, s := range ordered {
		if total+s.EstimatedCost <= budget {
			selected = append(selected, s)
			total += s.EstimatedCost
		}
	}
	return selected
}

func averageDistance(sites []domain.CandidateSite) float64 {
	if len(sites) < 2 {
		return 0
	}
	total, pairs := 0.0, 0
	for i := range sites {
		for j := i + 1; j < len(sites); j++ {
			total += HaversineKm(sites[i].Geo, sites[j].Geo)
			pairs++
		}
	}
	return total / float64(pairs)
}
