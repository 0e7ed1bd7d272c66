package migrate

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/baderkha/list-migrate/pkg/migrate/batch"
	"github.com/baderkha/list-migrate/pkg/migrate/config"
	"github.com/baderkha/list-migrate/pkg/migrate/destination"
	"github.com/baderkha/list-migrate/pkg/migrate/loader"
	"github.com/baderkha/list-migrate/pkg/migrate/schema"
	"github.com/baderkha/list-migrate/pkg/migrate/source"
	"github.com/baderkha/list-migrate/pkg/migrate/state"
	"github.com/baderkha/list-migrate/pkg/migrate/transform"
)

// Migration : drives the whole run, connect, authenticate, then one
// pipeline per table with the failures folded into an aggregate result
type Migration struct {
	src            source.Source
	dest           destination.Destination
	settings       config.Settings
	maxConcurrency int
	stateMgr       state.Manager
	exec           *loader.Executor
	log            zerolog.Logger
	runID          string
}

// Option : optional knobs for New
type Option func(*Migration)

// WithStateManager : records the run in a persistent audit log
func WithStateManager(m state.Manager) Option {
	return func(mg *Migration) { mg.stateMgr = m }
}

// WithLogger : replaces the default logger
func WithLogger(log zerolog.Logger) Option {
	return func(mg *Migration) { mg.log = log }
}

// WithMaxConcurrency : processes up to n tables in parallel, batch order
// inside a table is always sequential
func WithMaxConcurrency(n int) Option {
	return func(mg *Migration) { mg.maxConcurrency = n }
}

// New : builds a migration run, invalid settings fail here before any
// connection is attempted
func New(src source.Source, dest destination.Destination, settings config.Settings, opts ...Option) (*Migration, error) {
	if settings.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1 got %d", settings.BatchSize)
	}
	if settings.RetryCount < 0 {
		return nil, fmt.Errorf("retry count must be >= 0 got %d", settings.RetryCount)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	m := &Migration{
		src:      src,
		dest:     dest,
		settings: settings,
		stateMgr: state.NoopManager{},
		log:      zerolog.Nop(),
		runID:    uid.String(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Level(settings.Level()).With().Str("run_id", m.runID).Logger()
	m.exec = loader.New(dest, settings.RetryCount, m.log).WithTimeout(settings.RequestTimeout())
	return m, nil
}

// RunID : unique id of this run, also used in the audit log
func (m *Migration) RunID() string {
	return m.runID
}

// GetStateManager : exposes the audit log for shutdown handling
func (m *Migration) GetStateManager() state.Manager {
	return m.stateMgr
}

// Run : executes the migration. The returned error is non nil only for
// the run fatal failures, source unreachable or authentication
// rejected, every other failure is inside the result.
func (m *Migration) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: m.runID}

	if err := m.connectSource(ctx); err != nil {
		return res, err
	}
	defer m.src.Close()

	if err := m.authenticate(ctx); err != nil {
		return res, err
	}
	defer m.dest.Close()

	tables, err := m.extractTables(ctx)
	if err != nil {
		// a source whose schemas cannot be read is unreachable for the
		// run, same taxonomy as a failed connect
		return res, fmt.Errorf("%w : extract tables : %v", ErrSourceConnect, err)
	}
	m.stateMgr.InitRunLog(m.runID, len(tables))
	m.log.Info().Int("tables", len(tables)).Msg("starting migration run")

	res.Tables = m.migrateTables(ctx, tables)

	if res.Success() {
		m.stateMgr.PassedRunLog(m.runID)
		m.log.Info().Int("rows_loaded", res.RowsLoaded()).Msg("migration run succeeded")
	} else {
		m.stateMgr.FailedRunLog(m.runID, res.Err())
		m.log.Error().Err(res.Err()).Msg("migration run had failures")
	}
	return res, nil
}

func (m *Migration) connectSource(ctx context.Context) error {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()
	if err := m.src.Connect(callCtx); err != nil {
		return fmt.Errorf("%w : %v", ErrSourceConnect, err)
	}
	return nil
}

func (m *Migration) authenticate(ctx context.Context) error {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()
	if err := m.dest.Authenticate(callCtx); err != nil {
		return fmt.Errorf("%w : %v", ErrAuth, err)
	}
	return nil
}

func (m *Migration) extractTables(ctx context.Context) ([]schema.Table, error) {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()
	return m.src.Tables(callCtx)
}

// migrateTables : runs every table pipeline, sequentially by default or up
// to maxConcurrency tables at a time. Each result slot is owned by exactly
// one goroutine so no collector lock is needed.
func (m *Migration) migrateTables(ctx context.Context, tables []schema.Table) []TableResult {
	results := make([]TableResult, 0, len(tables))
	if m.maxConcurrency <= 1 {
		for i := range tables {
			if ctx.Err() != nil {
				// surface only completed work on cancellation
				break
			}
			results = append(results, m.migrateTable(ctx, &tables[i]))
		}
		return results
	}

	slots := make([]*TableResult, len(tables))
	var wg errgroup.Group
	wg.SetLimit(m.maxConcurrency)
	for i := range tables {
		if ctx.Err() != nil {
			break
		}
		i := i
		wg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r := m.migrateTable(ctx, &tables[i])
			slots[i] = &r
			return nil
		})
	}
	wg.Wait()
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

func (m *Migration) migrateTable(ctx context.Context, tbl *schema.Table) TableResult {
	res := TableResult{TableName: tbl.Name, ListName: tbl.Name}
	log := m.log.With().Str("table", tbl.Name).Logger()
	m.stateMgr.InitTableRunLog(m.runID, tbl.Name, res.ListName)

	finish := func() TableResult {
		outcome := state.TableOutcome{
			ListCreated:   res.ListCreated,
			RowsAttempted: res.RowsAttempted,
			RowsLoaded:    res.RowsLoaded,
			RowsRejected:  res.RowsRejected,
			Err:           res.Err,
		}
		if res.Success() {
			m.stateMgr.PassedTableRun(m.runID, tbl.Name, outcome)
		} else {
			if outcome.Err == nil && len(res.BatchErrors) > 0 {
				outcome.Err = res.BatchErrors[len(res.BatchErrors)-1]
			}
			m.stateMgr.FailedTableRun(m.runID, tbl.Name, outcome)
		}
		return res
	}

	if err := tbl.Validate(); err != nil {
		res.Err = err
		log.Error().Err(err).Msg("schema invariant violated")
		return finish()
	}

	// type mapping happens before anything touches the destination so an
	// unsupported column fails the table up front
	transformer, err := transform.New(tbl.Columns)
	if err != nil {
		res.Err = err
		log.Error().Err(err).Msg("type mapping failed")
		return finish()
	}

	if err := m.createList(ctx, res.ListName, transformer.DestinationColumns()); err != nil {
		res.Err = fmt.Errorf("create list : %w", err)
		log.Error().Err(err).Msg("list creation failed")
		return finish()
	}
	res.ListCreated = true

	rows, err := m.extractRows(ctx, tbl.Name)
	if err != nil {
		res.Err = fmt.Errorf("extract rows : %w", err)
		log.Error().Err(err).Msg("row extraction failed")
		return finish()
	}
	res.RowsAttempted = len(rows)

	transformed, rejected := transformer.Apply(rows)
	res.RowsRejected = len(rejected)
	for _, re := range rejected {
		log.Warn().Int("row", re.RowIndex).Str("column", re.Column).Err(re.Err).Msg("row dropped")
	}
	if len(rows) > 0 && len(transformed) == 0 {
		res.Err = ErrAllRowsRejected
		return finish()
	}

	batches, err := batch.Chunk(transformed, m.settings.BatchSize)
	if err != nil {
		res.Err = err
		return finish()
	}

	for i, b := range batches {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			break
		}
		outcome := m.exec.Load(ctx, res.ListName, b)
		if !outcome.Success {
			// a dead batch kills the rest of this table but never
			// the other tables
			res.BatchErrors = append(res.BatchErrors, fmt.Errorf("batch %d/%d after %d attempts : %w", i+1, len(batches), outcome.Attempts, outcome.LastErr))
			break
		}
		res.RowsLoaded += len(b)
	}

	log.Info().
		Bool("success", res.Success()).
		Int("rows_attempted", res.RowsAttempted).
		Int("rows_loaded", res.RowsLoaded).
		Int("rows_rejected", res.RowsRejected).
		Msg("table done")
	return finish()
}

func (m *Migration) createList(ctx context.Context, name string, cols []schema.DestinationColumn) error {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()
	return m.dest.CreateList(callCtx, name, cols)
}

func (m *Migration) extractRows(ctx context.Context, table string) ([]schema.RawRow, error) {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()
	return m.src.Rows(callCtx, table)
}

func (m *Migration) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := m.settings.RequestTimeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}
