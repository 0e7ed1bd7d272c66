package state

// NoopManager : drops every audit event, used when no state db is
// configured and by tests
type NoopManager struct{}

var _ Manager = NoopManager{}

func (NoopManager) GetLastRun() *RunLog { return nil }

func (NoopManager) GetRunLog(string) *RunLog { return nil }

func (NoopManager) GetTableRunLogs(string) []*TableRunLog { return nil }

func (NoopManager) InitRunLog(string, int) {}

func (NoopManager) FailedRunLog(string, error) {}

func (NoopManager) PassedRunLog(string) {}

func (NoopManager) InitTableRunLog(string, string, string) {}

func (NoopManager) FailedTableRun(string, string, TableOutcome) {}

func (NoopManager) PassedTableRun(string, string, TableOutcome) {}

func (NoopManager) DidTableFailForRun(string) bool { return false }

func (NoopManager) OnShutDownEv() {}
