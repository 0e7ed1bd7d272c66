package migrate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/baderkha/list-migrate/pkg/migrate/config"
	"github.com/baderkha/list-migrate/pkg/migrate/schema"
)

// fakeSource : in memory source collaborator
type fakeSource struct {
	connectErr error
	tablesErr  error
	tables     []schema.Table
	rows       map[string][]schema.RawRow

	mu           sync.Mutex
	connectCalls int
	tablesCalls  int
	rowsCalls    int
}

func (f *fakeSource) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls++
	return f.connectErr
}

func (f *fakeSource) Tables(ctx context.Context) ([]schema.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tablesCalls++
	return f.tables, f.tablesErr
}

func (f *fakeSource) Rows(ctx context.Context, table string) ([]schema.RawRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rowsCalls++
	return f.rows[table], nil
}

func (f *fakeSource) Close() error { return nil }

// fakeDestination : in memory destination collaborator with per list
// failure injection. Tables may be migrated concurrently, so all
// mutable state sits behind the mutex.
type fakeDestination struct {
	authErr        error
	createErrFor   map[string]error
	insertFailures map[string]int

	mu          sync.Mutex
	authCalls   int
	createCalls []string
	inserts     map[string][][]schema.TransformedRow
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{
		createErrFor:   make(map[string]error),
		insertFailures: make(map[string]int),
		inserts:        make(map[string][][]schema.TransformedRow),
	}
}

func (f *fakeDestination) Authenticate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return f.authErr
}

func (f *fakeDestination) CreateList(ctx context.Context, name string, cols []schema.DestinationColumn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, name)
	return f.createErrFor[name]
}

func (f *fakeDestination) InsertItems(ctx context.Context, list string, rows []schema.TransformedRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertFailures[list] > 0 {
		f.insertFailures[list]--
		return errors.New("insert rejected")
	}
	f.inserts[list] = append(f.inserts[list], rows)
	return nil
}

func (f *fakeDestination) Close() error { return nil }

func testTable() schema.Table {
	return schema.Table{
		Name: "TestTable",
		Columns: []schema.Column{
			{Name: "ID", SourceType: schema.Integer, Nullable: false},
			{Name: "Name", SourceType: schema.Text, Nullable: true},
		},
		PrimaryKeys: []string{"ID"},
	}
}

func testSettings() config.Settings {
	return config.Settings{BatchSize: 100, RetryCount: 2}
}

func TestRunEndToEnd(t *testing.T) {
	src := &fakeSource{
		tables: []schema.Table{testTable()},
		rows: map[string][]schema.RawRow{
			"TestTable": {{"ID": 1, "Name": "Test Item"}},
		},
	}
	dest := newFakeDestination()

	m, err := New(src, dest, testSettings())
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success() {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.RowsLoaded() != 1 {
		t.Errorf("rows loaded: got %d want 1", res.RowsLoaded())
	}
	if len(dest.createCalls) != 1 || dest.createCalls[0] != "TestTable" {
		t.Errorf("create calls: %v", dest.createCalls)
	}
	if len(dest.inserts["TestTable"]) != 1 {
		t.Errorf("insert calls: got %d want 1", len(dest.inserts["TestTable"]))
	}
	if src.connectCalls != 1 || dest.authCalls != 1 {
		t.Errorf("connect=%d auth=%d want 1 and 1", src.connectCalls, dest.authCalls)
	}
}

func TestRunSourceConnectFails(t *testing.T) {
	src := &fakeSource{connectErr: errors.New("file is gone")}
	dest := newFakeDestination()

	m, _ := New(src, dest, testSettings())
	_, err := m.Run(context.Background())
	if !errors.Is(err, ErrSourceConnect) {
		t.Fatalf("expected ErrSourceConnect, got %v", err)
	}
	// no destination call may happen at all
	if dest.authCalls != 0 || len(dest.createCalls) != 0 {
		t.Errorf("destination touched: auth=%d creates=%v", dest.authCalls, dest.createCalls)
	}
}

func TestRunSchemaExtractionFails(t *testing.T) {
	src := &fakeSource{tablesErr: errors.New("catalog is locked")}
	dest := newFakeDestination()

	m, _ := New(src, dest, testSettings())
	_, err := m.Run(context.Background())
	if !errors.Is(err, ErrSourceConnect) {
		t.Fatalf("expected ErrSourceConnect, got %v", err)
	}
	if len(dest.createCalls) != 0 || len(dest.inserts) != 0 {
		t.Errorf("destination written to without a schema: %v %v", dest.createCalls, dest.inserts)
	}
}

func TestRunAuthFails(t *testing.T) {
	src := &fakeSource{tables: []schema.Table{testTable()}}
	dest := newFakeDestination()
	dest.authErr = errors.New("bad credentials")

	m, _ := New(src, dest, testSettings())
	_, err := m.Run(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if len(dest.createCalls) != 0 || len(dest.inserts) != 0 {
		t.Errorf("destination written to after auth failure: %v %v", dest.createCalls, dest.inserts)
	}
	if src.tablesCalls != 0 {
		t.Errorf("tables extracted after auth failure")
	}
}

func TestRunCreateListFailureDoesNotAbortOtherTables(t *testing.T) {
	second := testTable()
	second.Name = "SecondTable"
	src := &fakeSource{
		tables: []schema.Table{testTable(), second},
		rows: map[string][]schema.RawRow{
			"TestTable":   {{"ID": 1, "Name": "a"}},
			"SecondTable": {{"ID": 2, "Name": "b"}, {"ID": 3, "Name": "c"}},
		},
	}
	dest := newFakeDestination()
	dest.createErrFor["TestTable"] = errors.New("list service said no")

	m, _ := New(src, dest, testSettings())
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Success() {
		t.Fatal("expected overall failure")
	}
	if len(res.Tables) != 2 {
		t.Fatalf("got %d table results want 2", len(res.Tables))
	}
	first, secondRes := res.Tables[0], res.Tables[1]
	if first.Success() || first.ListCreated {
		t.Errorf("first table should have failed at create: %+v", first)
	}
	if !secondRes.Success() || secondRes.RowsLoaded != 2 {
		t.Errorf("second table should be untouched by the first's failure: %+v", secondRes)
	}
}

func TestRunInsertRetriesThenSucceeds(t *testing.T) {
	src := &fakeSource{
		tables: []schema.Table{testTable()},
		rows:   map[string][]schema.RawRow{"TestTable": {{"ID": 1}}},
	}
	dest := newFakeDestination()
	dest.insertFailures["TestTable"] = 2

	m, _ := New(src, dest, testSettings())
	m.exec.WithBackoff(0)
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success() {
		t.Fatalf("expected success after retries, got %+v", res.Tables)
	}
}

func TestRunInsertExhaustsRetries(t *testing.T) {
	src := &fakeSource{
		tables: []schema.Table{testTable()},
		rows:   map[string][]schema.RawRow{"TestTable": {{"ID": 1}}},
	}
	dest := newFakeDestination()
	dest.insertFailures["TestTable"] = 3

	m, _ := New(src, dest, testSettings())
	m.exec.WithBackoff(0)
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Success() {
		t.Fatal("expected failure")
	}
	tr := res.Tables[0]
	if !tr.ListCreated || tr.RowsLoaded != 0 || len(tr.BatchErrors) != 1 {
		t.Errorf("table result: %+v", tr)
	}
}

func TestRunDropsBadRowsWithoutAbortingTable(t *testing.T) {
	src := &fakeSource{
		tables: []schema.Table{testTable()},
		rows: map[string][]schema.RawRow{
			"TestTable": {
				{"ID": 1, "Name": "good"},
				{"Name": "missing id, dropped"},
				{"ID": 3},
			},
		},
	}
	dest := newFakeDestination()

	m, _ := New(src, dest, testSettings())
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	tr := res.Tables[0]
	if !tr.Success() {
		t.Fatalf("dropped rows must not fail the table: %+v", tr)
	}
	if tr.RowsAttempted != 3 || tr.RowsLoaded != 2 || tr.RowsRejected != 1 {
		t.Errorf("counts: attempted=%d loaded=%d rejected=%d", tr.RowsAttempted, tr.RowsLoaded, tr.RowsRejected)
	}
}

func TestRunAllRowsRejected(t *testing.T) {
	src := &fakeSource{
		tables: []schema.Table{testTable()},
		rows:   map[string][]schema.RawRow{"TestTable": {{"Name": "no id"}}},
	}
	dest := newFakeDestination()

	m, _ := New(src, dest, testSettings())
	res, _ := m.Run(context.Background())
	tr := res.Tables[0]
	if tr.Success() {
		t.Fatal("expected table failure")
	}
	if !errors.Is(tr.Err, ErrAllRowsRejected) {
		t.Errorf("err: got %v", tr.Err)
	}
}

func TestRunEmptyTableIsSuccess(t *testing.T) {
	src := &fakeSource{tables: []schema.Table{testTable()}}
	dest := newFakeDestination()

	m, _ := New(src, dest, testSettings())
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	tr := res.Tables[0]
	if !tr.Success() || !tr.ListCreated || tr.RowsAttempted != 0 {
		t.Errorf("empty table: %+v", tr)
	}
	if len(dest.inserts["TestTable"]) != 0 {
		t.Errorf("no insert expected for an empty table")
	}
}

func TestRunUnsupportedTypeFailsTableOnly(t *testing.T) {
	bad := schema.Table{
		Name:    "BadTable",
		Columns: []schema.Column{{Name: "Shape", SourceType: "GEOMETRY"}},
	}
	src := &fakeSource{
		tables: []schema.Table{bad, testTable()},
		rows:   map[string][]schema.RawRow{"TestTable": {{"ID": 1}}},
	}
	dest := newFakeDestination()

	m, _ := New(src, dest, testSettings())
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Tables[0].Success() {
		t.Error("unsupported type should fail its table")
	}
	// no row and no list for the bad table
	for _, created := range dest.createCalls {
		if created == "BadTable" {
			t.Error("list created for a table that failed type mapping")
		}
	}
	if !res.Tables[1].Success() {
		t.Errorf("healthy table affected: %+v", res.Tables[1])
	}
}

func TestRunCancellationSurfacesPartialResult(t *testing.T) {
	second := testTable()
	second.Name = "SecondTable"
	src := &fakeSource{
		tables: []schema.Table{testTable(), second},
		rows: map[string][]schema.RawRow{
			"TestTable":   {{"ID": 1}},
			"SecondTable": {{"ID": 2}},
		},
	}
	dest := newFakeDestination()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, _ := New(src, dest, testSettings())
	res, err := m.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tables) != 0 {
		t.Errorf("cancelled before any table, got %d table results", len(res.Tables))
	}
	if len(dest.inserts) != 0 {
		t.Errorf("no batch should start after cancellation, got %v", dest.inserts)
	}
}

func TestRunParallelTablesPreservesResults(t *testing.T) {
	var tables []schema.Table
	rows := make(map[string][]schema.RawRow)
	names := []string{"A", "B", "C", "D"}
	for _, n := range names {
		tbl := testTable()
		tbl.Name = n
		tables = append(tables, tbl)
		rows[n] = []schema.RawRow{{"ID": 1, "Name": n}}
	}
	src := &fakeSource{tables: tables, rows: rows}
	dest := newFakeDestination()

	m, err := New(src, dest, testSettings(), WithMaxConcurrency(3))
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success() {
		t.Fatalf("expected success: %+v", res.Tables)
	}
	if len(res.Tables) != len(names) {
		t.Fatalf("got %d results want %d", len(res.Tables), len(names))
	}
	// source order survives parallel execution
	for i, n := range names {
		if res.Tables[i].TableName != n {
			t.Errorf("result %d: got %s want %s", i, res.Tables[i].TableName, n)
		}
		if got := len(dest.inserts[n]); got != 1 {
			t.Errorf("list %s: got %d insert calls want 1", n, got)
		}
	}
	if src.rowsCalls != len(names) {
		t.Errorf("row extractions: got %d want %d", src.rowsCalls, len(names))
	}
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	src := &fakeSource{}
	dest := newFakeDestination()
	if _, err := New(src, dest, config.Settings{BatchSize: 0}); err == nil {
		t.Error("batch size 0 accepted")
	}
	if _, err := New(src, dest, config.Settings{BatchSize: 10, RetryCount: -1}); err == nil {
		t.Error("negative retry count accepted")
	}
	if src.connectCalls != 0 {
		t.Error("connection attempted during construction")
	}
}
