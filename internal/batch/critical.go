package batch

import "time"

// Critical paths bound the wall clock achievable with unbounded
// parallelism. Three variants are computed under the pipeline strategy:
//
//	outline(p) = max(outline(d)) + p's outline duration
//	regular(p) = max(outline(d)) + p's slowest group
//	full(p)    = max(full(d))    + sum of p's groups
//
// Traditional runs only have the full variant. The recursion memoizes per
// runner; BuildDAG already rejected cycles.
type cpMemo struct {
	outline map[*runner]float64
	full    map[*runner]float64
}

func (s *sched) criticalPaths(wall time.Duration) {
	m := &cpMemo{
		outline: make(map[*runner]float64),
		full:    make(map[*runner]float64),
	}
	var maxOutline, maxRegular, maxFull float64
	for _, t := range s.tasks {
		r := s.runners[t]
		r.fullCriticalPathMillis = s.fullCP(m, r)
		if r.fullCriticalPathMillis > maxFull {
			maxFull = r.fullCriticalPathMillis
		}
		if s.opts.Strategy != Pipeline {
			continue
		}
		r.outlineCriticalPathMillis = s.outlineCP(m, r)
		if r.outlineCriticalPathMillis > maxOutline {
			maxOutline = r.outlineCriticalPathMillis
		}
		r.regularCriticalPathMillis = s.regularCP(m, r)
		if r.regularCriticalPathMillis > maxRegular {
			maxRegular = r.regularCriticalPathMillis
		}
	}
	if s.opts.Strategy == Pipeline {
		s.opts.Log.Printf("critical path: outline %.0f ms, regular %.0f ms, full %.0f ms", maxOutline, maxRegular, maxFull)
	}
	if s.opts.Jobs == 1 {
		s.opts.Log.Printf("critical path %.0f ms, wall clock %.0f ms", maxFull, float64(wall)/float64(time.Millisecond))
	}
}

func (s *sched) outlineCP(m *cpMemo, r *runner) float64 {
	if v, ok := m.outline[r]; ok {
		return v
	}
	var depMax float64
	for _, dep := range r.deps {
		if v := s.outlineCP(m, s.runners[dep.Target]); v > depMax {
			depMax = v
		}
	}
	v := depMax + r.outlineTimer.DurationMillis()
	m.outline[r] = v
	return v
}

func (s *sched) regularCP(m *cpMemo, r *runner) float64 {
	var depMax float64
	for _, dep := range r.deps {
		if v := s.outlineCP(m, s.runners[dep.Target]); v > depMax {
			depMax = v
		}
	}
	var slowest float64
	for _, g := range r.groups {
		if d := g.timer.DurationMillis(); d > slowest {
			slowest = d
		}
	}
	return depMax + slowest
}

func (s *sched) fullCP(m *cpMemo, r *runner) float64 {
	if v, ok := m.full[r]; ok {
		return v
	}
	var depMax float64
	for _, dep := range r.deps {
		if v := s.fullCP(m, s.runners[dep.Target]); v > depMax {
			depMax = v
		}
	}
	var sum float64
	for _, g := range r.groups {
		sum += g.timer.DurationMillis()
	}
	v := depMax + sum
	m.full[r] = v
	return v
}
