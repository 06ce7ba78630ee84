package mysql

// Config represent root of mysql config
type Config struct {
	Master   Connection   `yaml:"master"`
	Slaves   []Connection `yaml:"slaves"`
	ConnCfg  ConnCfg      `yaml:"conn_cfg"`
	LogLevel int          `yaml:"log_level"`
}

// Connection is one mysql endpoint.
type Connection struct {
	Host     string `yaml:"host"`
	Port     uint   `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db_name"`
}

// ConnCfg bounds the connection pool.
type ConnCfg struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// SetDefaults fills unset pool and logging values.
func (c *Config) SetDefaults() {
	if c.ConnCfg.MaxOpenConns == 0 {
		c.ConnCfg.MaxOpenConns = 32
	}
	if c.ConnCfg.MaxIdleConns == 0 {
		c.ConnCfg.MaxIdleConns = 8
	}
	if c.LogLevel == 0 {
		// gorm logger.Warn
		c.LogLevel = 3
	}
}
