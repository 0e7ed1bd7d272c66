package sourcecfg

import (
	"errors"
	"fmt"
)

// MYSQL : connection parameters for a mysql source
type MYSQL struct {
	SessionVariableValues map[string]string `json:"session_vars"`
	TableList             []string          `json:"table_list"`
	Host                  string            `json:"host"`
	UserName              string            `json:"user_name"`
	Password              string            `json:"password"`
	Port                  int               `json:"port"`
	DB                    string            `json:"db"`
	QueryLogging          bool              `json:"query_log"`
}

func (m *MYSQL) GetDSN() string {
	return fmt.Sprintf(`%s:%s@tcp(%s:%d)/%s?parseTime=true&collation=utf8mb4_general_ci&autocommit=true`, m.UserName, m.Password, m.Host, m.Port, m.DB)
}

func (m *MYSQL) Validate() error {
	if m.Host == "" {
		return errors.New("host is required")
	}
	if m.Port == 0 {
		return errors.New("port is required")
	}
	if m.UserName == "" {
		return errors.New("user_name is required")
	}
	if m.DB == "" {
		return errors.New("db is required")
	}
	return nil
}
