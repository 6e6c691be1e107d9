package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/ruleset"
)

// Options configures one pipeline run. Configuration is validated up front;
// any problem here aborts before a single patient is processed.
type Options struct {
	Index domain.IndexVariant
	Site  domain.CancerSite // required for C3, empty otherwise

	// Output toggles. Declining both is misuse: the engine would do no
	// observable work, so it refuses the run instead.
	IncludeIndicators bool
	IncludeScores     bool

	// Workers is the number of patient-key partitions processed in
	// parallel. Zero or negative means one per CPU.
	Workers int

	// Table overrides the built-in ruleset with an externally loaded one.
	Table *ruleset.Ruleset
}

// Input carries one run's data. Records is the full lookback window;
// PreTreatment is the C3-only window predating the treatment/registration
// event; Registry is the M3-only cancer-registry source.
type Input struct {
	Records      []domain.CodeRecord
	PreTreatment []domain.CodeRecord
	Registry     []domain.RegistryRecord
}

// PatientResult is one output row: the patient's indicators and/or score,
// subject to the run's output toggles.
type PatientResult struct {
	Patient    domain.PatientKey             `json:"patient"`
	Indicators map[domain.CategoryID]uint8   `json:"indicators,omitempty"`
	Score      float64                       `json:"score"`
	Band       domain.ScoreBand              `json:"band"`
	Scored     bool                          `json:"scored"`
}

// Result is the complete output of one run.
type Result struct {
	RunID          string                `json:"run_id"`
	Index          domain.IndexVariant   `json:"index"`
	Site           domain.CancerSite     `json:"site,omitempty"`
	Categories     []domain.CategoryID   `json:"categories"`
	Patients       []PatientResult       `json:"patients"`
	MalformedCodes int64                 `json:"malformed_codes"`
}

// Pipeline wires Classifier, Aggregator, Resolver and Scorer into the full
// per-patient flow. Patients are independent; the run partitions them by key
// and processes partitions concurrently, concatenating at the end.
type Pipeline struct {
	opts   Options
	rs     ruleset.Ruleset
	logger *logrus.Logger
}

// New validates the run configuration and resolves the ruleset. All
// configuration errors surface here, before Run touches any record.
func New(opts Options, logger *logrus.Logger) (*Pipeline, error) {
	if !opts.IncludeIndicators && !opts.IncludeScores {
		return nil, domain.NewConfigError("outputs", "", domain.ErrNoOutputs)
	}
	if !opts.Index.IsValid() {
		return nil, domain.NewConfigError("index", opts.Index.String(), domain.ErrUnknownIndex)
	}

	var rs ruleset.Ruleset
	switch {
	case opts.Table != nil:
		rs = *opts.Table
	case opts.Index == domain.IndexM3:
		if opts.Site != domain.SiteNone {
			return nil, domain.NewConfigError("cancer_site", opts.Site.String(),
				fmt.Errorf("site parameter is only valid for %s runs", domain.IndexC3))
		}
		rs = ruleset.M3()
	default:
		var err error
		rs, err = ruleset.C3(opts.Site)
		if err != nil {
			return nil, err
		}
	}

	if err := rs.Table.Validate(); err != nil {
		return nil, err
	}
	if err := rs.Weights.Validate(rs.Table); err != nil {
		return nil, err
	}
	if rs.PreTable != nil {
		if err := rs.PreTable.Validate(); err != nil {
			return nil, err
		}
		if err := rs.Weights.Validate(rs.PreTable); err != nil {
			return nil, err
		}
	}

	return &Pipeline{opts: opts, rs: rs, logger: logger}, nil
}

// Run executes the full pipeline over the input and returns per-patient
// results sorted by patient key.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	return p.RunFunc(ctx, in, nil)
}

// RunFunc is Run with a streaming hook: emit, when non-nil, is called once
// per patient as results are produced. It may be called concurrently from
// partition workers and must be safe for concurrent use.
func (p *Pipeline) RunFunc(ctx context.Context, in Input, emit func(PatientResult)) (*Result, error) {
	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	runID := uuid.NewString()
	log := p.logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"index":   p.opts.Index.String(),
		"site":    p.opts.Site.String(),
		"records": len(in.Records),
		"workers": workers,
	})
	log.Info("Starting comorbidity index run")

	records := partitionRecords(in.Records, workers)
	preTreatment := partitionRecords(in.PreTreatment, workers)
	registry := partitionRegistry(in.Registry, workers)

	type shardOut struct {
		results   []PatientResult
		malformed int64
		err       error
	}

	outs := make([]shardOut, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			res, malformed, err := p.runShard(ctx, records[w], preTreatment[w], registry[w], emit)
			outs[w] = shardOut{results: res, malformed: malformed, err: err}
		}(w)
	}
	wg.Wait()

	result := &Result{
		RunID:      runID,
		Index:      p.opts.Index,
		Site:       p.opts.Site,
		Categories: p.categories(),
	}
	for _, out := range outs {
		if out.err != nil {
			return nil, out.err
		}
		result.Patients = append(result.Patients, out.results...)
		result.MalformedCodes += out.malformed
	}

	sort.Slice(result.Patients, func(i, j int) bool {
		return result.Patients[i].Patient < result.Patients[j].Patient
	})

	log.WithFields(logrus.Fields{
		"patients":  len(result.Patients),
		"malformed": result.MalformedCodes,
	}).Info("Completed comorbidity index run")

	return result, nil
}

// runShard processes one patient-key partition end to end: aggregate,
// resolve overrides, score, shape output rows.
func (p *Pipeline) runShard(
	ctx context.Context,
	records, preTreatment []domain.CodeRecord,
	registry []domain.RegistryRecord,
	emit func(PatientResult),
) ([]PatientResult, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var (
		matrix    *domain.IndicatorMatrix
		malformed int64
	)
	if p.rs.PreTable != nil {
		var err error
		matrix, malformed, err = DualPassAggregate(records, preTreatment, p.rs.Table, p.rs.PreTable, p.logger)
		if err != nil {
			return nil, 0, err
		}
	} else {
		classifier, err := NewClassifier(p.rs.Table, p.logger)
		if err != nil {
			return nil, 0, err
		}
		matrix = NewAggregator(classifier, p.logger).Aggregate(records)
		malformed = classifier.MalformedCount()
	}

	NewResolver(p.rs.Overrides, p.logger).Resolve(matrix, registry)

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var scores map[domain.PatientKey]ScoreResult
	if p.opts.IncludeScores {
		scored, err := NewScorer(p.rs.Weights, p.logger).ScoreMatrix(matrix)
		if err != nil {
			return nil, 0, err
		}
		scores = make(map[domain.PatientKey]ScoreResult, len(scored))
		for _, s := range scored {
			scores[s.Patient] = s
		}
	}

	results := make([]PatientResult, 0, matrix.Len())
	for _, patient := range matrix.Patients() {
		row := PatientResult{Patient: patient, Band: domain.BandUndefined}
		if p.opts.IncludeIndicators {
			row.Indicators = matrix.Row(patient)
		}
		if p.opts.IncludeScores {
			s := scores[patient]
			row.Score = s.Score
			row.Band = s.Band
			row.Scored = true
		}
		if emit != nil {
			emit(row)
		}
		results = append(results, row)
	}
	return results, malformed, nil
}

// categories returns the full output column namespace for the run.
func (p *Pipeline) categories() []domain.CategoryID {
	ids := p.rs.Table.CategoryIDs()
	if p.rs.PreTable != nil {
		ids = append(ids, p.rs.PreTable.CategoryIDs()...)
	}
	return ids
}

// shardFor assigns a patient to a partition by FNV-1a hash of the key, so
// every record of a patient lands in the same partition.
func shardFor(p domain.PatientKey, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(p))
	return int(h.Sum32() % uint32(workers))
}

func partitionRecords(records []domain.CodeRecord, workers int) [][]domain.CodeRecord {
	out := make([][]domain.CodeRecord, workers)
	for _, r := range records {
		w := shardFor(r.Patient, workers)
		out[w] = append(out[w], r)
	}
	return out
}

func partitionRegistry(records []domain.RegistryRecord, workers int) [][]domain.RegistryRecord {
	out := make([][]domain.RegistryRecord, workers)
	for _, r := range records {
		w := shardFor(r.Patient, workers)
		out[w] = append(out[w], r)
	}
	return out
}
