package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/fraeswerk/nestkit/internal/model"
	"github.com/fraeswerk/nestkit/internal/perf"
)

// GeneticConfig holds parameters for the genetic nesting optimizer.
type GeneticConfig struct {
	PopulationSize    int
	TimeBudget        time.Duration
	TargetUtilization float64 // percent; 0 disables the target cutoff
	StallLimit        int     // generations without improvement before stopping
	TournamentSize    int
	EliteCount        int
	SwapProb          float64 // per-offspring permutation swap probability
	FlipProb          float64 // per-offspring rotation flip probability
	Seed              int64
}

// DefaultGeneticConfig returns sensible default parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 40,
		TimeBudget:     2 * time.Second,
		StallLimit:     20,
		TournamentSize: 3,
		EliteCount:     2,
		SwapProb:       0.3,
		FlipProb:       0.2,
		Seed:           42,
	}
}

// Individual is one candidate solution: a permutation of part indices plus a
// per-part rotation flag. Operators mutate individuals in place during
// evolution; the tracked champion is always a deep copy.
type Individual struct {
	Order            []int
	Rotated          []bool
	Fitness          float64
	Utilization      float64 // percent
	CutComplexity    int
	PlacedCount      int
	PlacementSuccess bool

	evaluated bool
}

// Clone returns a deep copy with all scores carried over.
func (ind *Individual) Clone() *Individual {
	cp := *ind
	cp.Order = append([]int(nil), ind.Order...)
	cp.Rotated = append([]bool(nil), ind.Rotated...)
	return &cp
}

// GeneticOptimizer is the population-based alternative to the shelf packer.
// Candidate orderings are decoded by a deterministic bottom-left fill, so
// the genome fully determines the layout.
type GeneticOptimizer struct {
	Config GeneticConfig
	Nest   model.NestingConfig
	Logger *slog.Logger

	// OnGeneration, when set, observes the champion fitness after each
	// generation. Used by instrumentation and tests.
	OnGeneration func(generation int, bestFitness float64)

	rng *rand.Rand
}

func NewGeneticOptimizer(nest model.NestingConfig, cfg GeneticConfig) *GeneticOptimizer {
	if cfg.PopulationSize < 4 {
		cfg.PopulationSize = DefaultGeneticConfig().PopulationSize
	}
	if cfg.StallLimit <= 0 {
		cfg.StallLimit = DefaultGeneticConfig().StallLimit
	}
	if cfg.TournamentSize < 2 {
		cfg.TournamentSize = 2
	}
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = DefaultGeneticConfig().TimeBudget
	}
	return &GeneticOptimizer{
		Config: cfg,
		Nest:   nest,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (g *GeneticOptimizer) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Pack evolves part orderings and returns the champion's layout. A layout
// where nothing fits yields an empty result, not an error. Cancellation is
// polled once per generation and returns the best-so-far decoding.
func (g *GeneticOptimizer) Pack(ctx context.Context, parts []model.Part, sheets []model.SheetSpec, progress perf.Reporter) model.PackResult {
	expanded := model.ExpandQuantities(parts)
	if len(expanded) == 0 || len(sheets) == 0 {
		return model.PackResult{}
	}

	population := g.initPopulation(expanded)
	var champion *Individual
	stall := 0
	start := time.Now()
	deadline := start.Add(g.Config.TimeBudget)
	var warnings []string

	for gen := 0; ; gen++ {
		if perf.Canceled(ctx) {
			warnings = append(warnings, "optimization canceled: returning best solution so far")
			break
		}

		for _, ind := range population {
			if !ind.evaluated {
				g.evaluate(ind, expanded, sheets)
			}
		}
		sort.SliceStable(population, func(i, j int) bool {
			return population[i].Fitness > population[j].Fitness
		})

		if champion == nil || population[0].Fitness > champion.Fitness {
			champion = population[0].Clone()
			stall = 0
		} else {
			stall++
		}

		if g.OnGeneration != nil {
			g.OnGeneration(gen, champion.Fitness)
		}
		perf.Publish(progress, "evolve",
			float64(time.Since(start))/float64(g.Config.TimeBudget)*100)

		if time.Now().After(deadline) {
			break
		}
		if g.Config.TargetUtilization > 0 && champion.Utilization >= g.Config.TargetUtilization {
			break
		}
		if stall > g.Config.StallLimit {
			break
		}

		population = g.nextGeneration(population, expanded)
	}

	if champion == nil || champion.PlacedCount == 0 {
		return model.PackResult{Warnings: warnings}
	}

	d := g.decode(champion, expanded, sheets)
	g.logger().Debug("genetic pack finished",
		"fitness", champion.Fitness,
		"utilization", champion.Utilization,
		"placed", d.placedCount,
		"elapsed", time.Since(start))

	if d.placedCount < len(expanded) {
		warnings = append(warnings,
			fmt.Sprintf("%d of %d parts could not be placed", len(expanded)-d.placedCount, len(expanded)))
	}
	perf.Publish(progress, "evolve", 100)

	return model.PackResult{
		Placed:     d.placed,
		SheetCount: d.sheetCount,
		Warnings:   warnings,
	}
}

// initPopulation builds PopulationSize-2 random individuals plus two
// heuristic seeds: area descending and longest-side descending, unrotated.
func (g *GeneticOptimizer) initPopulation(parts []model.Part) []*Individual {
	n := len(parts)
	population := make([]*Individual, 0, g.Config.PopulationSize)

	seeds := 2
	if g.Config.PopulationSize < 4 {
		seeds = 0
	}
	for i := 0; i < g.Config.PopulationSize-seeds; i++ {
		ind := &Individual{
			Order:   g.rng.Perm(n),
			Rotated: make([]bool, n),
		}
		for j := 0; j < n; j++ {
			if g.canRotate(parts[ind.Order[j]]) && g.rng.Float64() < 0.5 {
				ind.Rotated[ind.Order[j]] = true
			}
		}
		population = append(population, ind)
	}

	if seeds > 0 {
		population = append(population,
			g.seedIndividual(parts, func(a, b model.Part) bool { return a.Area() > b.Area() }),
			g.seedIndividual(parts, func(a, b model.Part) bool { return a.MaxDim() > b.MaxDim() }),
		)
	}
	return population
}

func (g *GeneticOptimizer) seedIndividual(parts []model.Part, less func(a, b model.Part) bool) *Individual {
	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return less(parts[order[i]], parts[order[j]])
	})
	return &Individual{Order: order, Rotated: make([]bool, len(parts))}
}

func (g *GeneticOptimizer) canRotate(p model.Part) bool {
	return p.CanRotate && !p.IsSquare() &&
		(g.Nest.RotationAllowed(90) || g.Nest.RotationAllowed(270))
}

// evaluate decodes an individual and scores it. Fitness rewards utilization
// first, then simpler cut paths, then raw placement count.
func (g *GeneticOptimizer) evaluate(ind *Individual, parts []model.Part, sheets []model.SheetSpec) {
	d := g.decode(ind, parts, sheets)
	ind.Utilization = d.utilizationPct
	ind.CutComplexity = d.cutComplexity
	ind.PlacedCount = d.placedCount
	ind.PlacementSuccess = d.placedCount == len(parts)
	ind.Fitness = d.utilizationPct +
		10.0/(1.0+float64(d.cutComplexity)) +
		0.1*float64(d.placedCount)
	ind.evaluated = true
}

// nextGeneration keeps deep copies of the top individuals and fills the rest
// with offspring from tournament selection, order crossover, uniform
// rotation crossover and mutation.
func (g *GeneticOptimizer) nextGeneration(population []*Individual, parts []model.Part) []*Individual {
	next := make([]*Individual, 0, g.Config.PopulationSize)

	elites := g.Config.EliteCount
	if elites > len(population) {
		elites = len(population)
	}
	for i := 0; i < elites; i++ {
		next = append(next, population[i].Clone())
	}

	for len(next) < g.Config.PopulationSize {
		a := g.tournament(population)
		b := g.tournament(population)
		child := g.orderCrossover(a, b)
		g.uniformRotationCrossover(child, b)
		g.mutate(child, parts)
		next = append(next, child)
	}
	return next
}

// tournament samples TournamentSize individuals and keeps the fittest.
func (g *GeneticOptimizer) tournament(population []*Individual) *Individual {
	best := population[g.rng.Intn(len(population))]
	for i := 1; i < g.Config.TournamentSize; i++ {
		c := population[g.rng.Intn(len(population))]
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

// orderCrossover copies a random contiguous slice of parent A's permutation
// and fills the remaining slots with parent B's order, skipping ids already
// taken. The child starts with A's rotation flags.
func (g *GeneticOptimizer) orderCrossover(a, b *Individual) *Individual {
	n := len(a.Order)
	if n <= 2 {
		c := a.Clone()
		c.evaluated = false
		return c
	}

	lo, hi := g.rng.Intn(n), g.rng.Intn(n)
	if lo > hi {
		lo, hi = hi, lo
	}

	child := &Individual{
		Order:   make([]int, n),
		Rotated: append([]bool(nil), a.Rotated...),
	}
	used := make(map[int]bool, hi-lo+1)
	for i := lo; i <= hi; i++ {
		child.Order[i] = a.Order[i]
		used[a.Order[i]] = true
	}

	fill := (hi + 1) % n
	for _, id := range b.Order {
		if used[id] {
			continue
		}
		child.Order[fill] = id
		fill = (fill + 1) % n
	}
	return child
}

// uniformRotationCrossover takes each rotation flag from the second parent
// with probability one half.
func (g *GeneticOptimizer) uniformRotationCrossover(child, b *Individual) {
	for i := range child.Rotated {
		if g.rng.Float64() < 0.5 {
			child.Rotated[i] = b.Rotated[i]
		}
	}
}

// mutate swaps two permutation positions and flips one rotatable part's
// rotation bit at the configured probabilities.
func (g *GeneticOptimizer) mutate(ind *Individual, parts []model.Part) {
	n := len(ind.Order)
	if n >= 2 && g.rng.Float64() < g.Config.SwapProb {
		i, j := g.rng.Intn(n), g.rng.Intn(n)
		ind.Order[i], ind.Order[j] = ind.Order[j], ind.Order[i]
	}
	if g.rng.Float64() < g.Config.FlipProb {
		var rotatable []int
		for i, p := range parts {
			if g.canRotate(p) {
				rotatable = append(rotatable, i)
			}
		}
		if len(rotatable) > 0 {
			i := rotatable[g.rng.Intn(len(rotatable))]
			ind.Rotated[i] = !ind.Rotated[i]
		}
	}
}

// --- bottom-left-fill decoder ---

type occRect struct {
	x, y, w, h float64
}

type gaSheet struct {
	spec     model.SheetSpec
	occupied []occRect
}

type decodeResult struct {
	placed         []model.PlacedPart
	utilizationPct float64
	cutComplexity  int
	placedCount    int
	sheetCount     int
}

// decode turns a permutation plus rotation vector into placements with a
// deterministic bottom-left fill over a growing occupied-rectangle list,
// always preferring the lowest-then-leftmost free candidate corner.
func (g *GeneticOptimizer) decode(ind *Individual, parts []model.Part, sheets []model.SheetSpec) decodeResult {
	gap := g.Nest.Gap()
	var open []*gaSheet
	var out decodeResult

	for _, idx := range ind.Order {
		part := parts[idx]
		w, h := part.Width, part.Height
		rot := 0
		if ind.Rotated[idx] && g.canRotate(part) {
			w, h = h, w
			rot = 90
		}

		placed := false
		for si, sheet := range open {
			if x, y, ok := blfPlace(sheet, w, h, gap); ok {
				out.placed = append(out.placed, g.placedPart(part, sheet.spec, si, x, y, w, h, rot))
				placed = true
				break
			}
		}
		// Unopened sheets may carry a different spec; keep opening in
		// list order until one takes the part or the list is exhausted
		// and the reused last spec also rejects it.
		for !placed {
			sheet := &gaSheet{spec: model.SheetForIndex(sheets, len(open))}
			if w <= sheet.spec.UsableWidth()+1e-9 && h <= sheet.spec.UsableHeight()+1e-9 {
				open = append(open, sheet)
				x, y, _ := blfPlace(sheet, w, h, gap)
				out.placed = append(out.placed, g.placedPart(part, sheet.spec, len(open)-1, x, y, w, h, rot))
				placed = true
				break
			}
			if len(open) >= len(sheets) {
				break
			}
			open = append(open, sheet)
		}
		if placed {
			out.placedCount++
		}
	}

	out.sheetCount = len(open)
	out.cutComplexity = cutComplexity(out.placed)

	var placedArea, totalArea float64
	for _, p := range out.placed {
		placedArea += p.Area()
	}
	for _, s := range open {
		totalArea += s.spec.UsableArea()
	}
	if totalArea > 0 {
		out.utilizationPct = placedArea / totalArea * 100
	}
	return out
}

func (g *GeneticOptimizer) placedPart(part model.Part, spec model.SheetSpec, sheetIdx int, x, y, w, h float64, rot int) model.PlacedPart {
	return model.PlacedPart{
		PartID:      part.ID,
		Label:       part.Label,
		X:           spec.Margin + x,
		Y:           spec.Margin + y,
		Width:       w,
		Height:      h,
		RotationDeg: rot,
		SheetIndex:  sheetIdx,
	}
}

// blfPlace finds the lowest-then-leftmost corner where a w x h rectangle
// fits with the required gap to every occupied rectangle. Candidate corners
// are the usable origin plus the right and top edges (gap included) of each
// occupied rectangle. On success the rectangle is committed to the sheet.
func blfPlace(sheet *gaSheet, w, h, gap float64) (float64, float64, bool) {
	type corner struct{ x, y float64 }
	candidates := []corner{{0, 0}}
	for _, r := range sheet.occupied {
		candidates = append(candidates,
			corner{r.x + r.w + gap, r.y},
			corner{r.x, r.y + r.h + gap},
		)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if math.Abs(candidates[i].y-candidates[j].y) > 1e-9 {
			return candidates[i].y < candidates[j].y
		}
		return candidates[i].x < candidates[j].x
	})

	uw, uh := sheet.spec.UsableWidth(), sheet.spec.UsableHeight()
	for _, c := range candidates {
		if c.x+w > uw+1e-9 || c.y+h > uh+1e-9 {
			continue
		}
		if !clearOf(sheet.occupied, c.x, c.y, w, h, gap) {
			continue
		}
		sheet.occupied = append(sheet.occupied, occRect{c.x, c.y, w, h})
		return c.x, c.y, true
	}
	return 0, 0, false
}

// clearOf reports whether the candidate rectangle keeps at least gap mm of
// separation from every occupied rectangle.
func clearOf(occupied []occRect, x, y, w, h, gap float64) bool {
	for _, r := range occupied {
		if x < r.x+r.w+gap-1e-9 && x+w+gap > r.x+1e-9 &&
			y < r.y+r.h+gap-1e-9 && y+h+gap > r.y+1e-9 {
			return false
		}
	}
	return true
}

// cutComplexity counts the distinct x and y coordinates spanned by the
// placements, a proxy for how many guillotine cuts the layout implies.
func cutComplexity(placed []model.PlacedPart) int {
	coords := map[[2]int64]bool{}
	for _, p := range placed {
		for _, x := range []float64{p.X, p.Right()} {
			coords[[2]int64{0, int64(math.Round(x * 10))}] = true
		}
		for _, y := range []float64{p.Y, p.Top()} {
			coords[[2]int64{1, int64(math.Round(y * 10))}] = true
		}
	}
	return len(coords)
}
