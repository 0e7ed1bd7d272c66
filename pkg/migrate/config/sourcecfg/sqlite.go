package sourcecfg

import "errors"

// SQLite : connection parameters for a file backed sqlite source
type SQLite struct {
	FilePath string `json:"file_path"`
	// TableList : optional allow list, empty means every user table
	TableList    []string `json:"table_list"`
	QueryLogging bool     `json:"query_log"`
}

func (s *SQLite) GetDSN() string {
	return "file:" + s.FilePath + "?mode=ro"
}

func (s *SQLite) Validate() error {
	if s.FilePath == "" {
		return errors.New("file_path is required")
	}
	return nil
}
