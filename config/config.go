/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_DATA_DIR          = "data"
	DEFAULT_ACCOUNTS_FILE     = "accounts.csv"
	DEFAULT_TRANSACTIONS_FILE = "transactions.csv"
	DEFAULT_LEDGER_CAPACITY   = 200
	MIN_WORKERS               = 2
	MAX_WORKERS               = 10
)

var ConfigStore atomic.Value

// Duration is a time.Duration written as "30s" or "250ms" in the config file
// and the environment. A bare JSON number is read as nanoseconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(value)
		return nil
	case string:
		return d.Decode(value)
	}
	return fmt.Errorf("invalid duration %s", b)
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value, err)
	}
	*d = Duration(parsed)
	return nil
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"TELLER_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"TELLER_REDIS_SKIP_TLS_VERIFY"`
}

type LockConfig struct {
	TTL  Duration `json:"ttl" envconfig:"TELLER_LOCK_TTL"`
	Wait Duration `json:"wait" envconfig:"TELLER_LOCK_WAIT"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"TELLER_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type LedgerConfig struct {
	// Capacity bounds the transaction ledger. Zero means unbounded.
	Capacity *int `json:"capacity" envconfig:"TELLER_LEDGER_CAPACITY"`
}

type PolicyConfig struct {
	SavingsMinimumBalance  float64 `json:"savings_minimum_balance" envconfig:"TELLER_SAVINGS_MINIMUM_BALANCE"`
	CheckingOverdraftLimit float64 `json:"checking_overdraft_limit" envconfig:"TELLER_CHECKING_OVERDRAFT_LIMIT"`
	CheckingMonthlyFee     float64 `json:"checking_monthly_fee" envconfig:"TELLER_CHECKING_MONTHLY_FEE"`
}

type SimulationConfig struct {
	Workers        int      `json:"workers" envconfig:"TELLER_SIMULATION_WORKERS"`
	TasksPerWorker int      `json:"tasks_per_worker" envconfig:"TELLER_SIMULATION_TASKS_PER_WORKER"`
	PoolSize       int      `json:"pool_size" envconfig:"TELLER_SIMULATION_POOL_SIZE"`
	Timeout        Duration `json:"timeout" envconfig:"TELLER_SIMULATION_TIMEOUT"`
	MinAmount      float64  `json:"min_amount" envconfig:"TELLER_SIMULATION_MIN_AMOUNT"`
	MaxAmount      float64  `json:"max_amount" envconfig:"TELLER_SIMULATION_MAX_AMOUNT"`
	LatencyMin     Duration `json:"latency_min" envconfig:"TELLER_SIMULATION_LATENCY_MIN"`
	LatencyMax     Duration `json:"latency_max" envconfig:"TELLER_SIMULATION_LATENCY_MAX"`
	PauseMin       Duration `json:"pause_min" envconfig:"TELLER_SIMULATION_PAUSE_MIN"`
	PauseMax       Duration `json:"pause_max" envconfig:"TELLER_SIMULATION_PAUSE_MAX"`
	Seed           int64    `json:"seed" envconfig:"TELLER_SIMULATION_SEED"`
}

type Configuration struct {
	ProjectName      string           `json:"project_name" envconfig:"TELLER_PROJECT_NAME"`
	LogLevel         string           `json:"log_level" envconfig:"TELLER_LOG_LEVEL"`
	DataDir          string           `json:"data_dir" envconfig:"TELLER_DATA_DIR"`
	AccountsFile     string           `json:"accounts_file" envconfig:"TELLER_ACCOUNTS_FILE"`
	TransactionsFile string           `json:"transactions_file" envconfig:"TELLER_TRANSACTIONS_FILE"`
	Redis            RedisConfig      `json:"redis"`
	Lock             LockConfig       `json:"lock"`
	Notification     Notification     `json:"notification"`
	Ledger           LedgerConfig     `json:"ledger"`
	Policy           PolicyConfig     `json:"policy"`
	Simulation       SimulationConfig `json:"simulation"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("teller", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called teller.json with your config")
	}
	return c, nil
}

// AccountsPath is the accounts file resolved against the data directory.
func (cnf *Configuration) AccountsPath() string {
	return resolve(cnf.DataDir, cnf.AccountsFile)
}

// TransactionsPath is the transactions file resolved against the data directory.
func (cnf *Configuration) TransactionsPath() string {
	return resolve(cnf.DataDir, cnf.TransactionsFile)
}

func resolve(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

func (cnf *Configuration) validateAndAddDefaults() error {
	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataDir = strings.TrimSpace(cnf.DataDir)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.ProjectName == "" {
		cnf.ProjectName = "Teller"
	}

	if cnf.LogLevel == "" {
		cnf.LogLevel = "info"
	}
	if _, err := logrus.ParseLevel(cnf.LogLevel); err != nil {
		return errors.New("log level must be one of panic, fatal, error, warn, info, debug, trace")
	}

	if cnf.DataDir == "" {
		cnf.DataDir = DEFAULT_DATA_DIR
	}
	if cnf.AccountsFile == "" {
		cnf.AccountsFile = DEFAULT_ACCOUNTS_FILE
	}
	if cnf.TransactionsFile == "" {
		cnf.TransactionsFile = DEFAULT_TRANSACTIONS_FILE
	}

	if cnf.Lock.TTL == 0 {
		cnf.Lock.TTL = Duration(time.Minute)
	}
	if cnf.Lock.Wait == 0 {
		cnf.Lock.Wait = Duration(5 * time.Second)
	}

	if cnf.Ledger.Capacity == nil {
		capacity := DEFAULT_LEDGER_CAPACITY
		cnf.Ledger.Capacity = &capacity
	}
	if *cnf.Ledger.Capacity < 0 {
		return errors.New("ledger capacity cannot be negative")
	}

	if cnf.Policy.SavingsMinimumBalance == 0 {
		cnf.Policy.SavingsMinimumBalance = 500
	}
	if cnf.Policy.CheckingOverdraftLimit == 0 {
		cnf.Policy.CheckingOverdraftLimit = 1000
	}
	if cnf.Policy.CheckingMonthlyFee == 0 {
		cnf.Policy.CheckingMonthlyFee = 10
	}
	if cnf.Policy.SavingsMinimumBalance < 0 || cnf.Policy.CheckingOverdraftLimit < 0 || cnf.Policy.CheckingMonthlyFee < 0 {
		return errors.New("policy limits cannot be negative")
	}

	return cnf.Simulation.validateAndAddDefaults()
}

func (s *SimulationConfig) validateAndAddDefaults() error {
	if s.Workers == 0 {
		s.Workers = 4
	}
	if s.Workers < MIN_WORKERS || s.Workers > MAX_WORKERS {
		return errors.New("simulation workers must be between 2 and 10")
	}
	if s.TasksPerWorker == 0 {
		s.TasksPerWorker = 5
	}
	if s.TasksPerWorker < 0 {
		return errors.New("simulation tasks per worker must be positive")
	}
	if s.PoolSize == 0 {
		s.PoolSize = MAX_WORKERS
	}
	if s.Timeout == 0 {
		s.Timeout = Duration(30 * time.Second)
	}
	if s.MinAmount == 0 && s.MaxAmount == 0 {
		s.MinAmount, s.MaxAmount = 50, 250
	}
	if s.MinAmount <= 0 || s.MaxAmount < s.MinAmount {
		return errors.New("simulation amount range is invalid")
	}
	if s.LatencyMin == 0 && s.LatencyMax == 0 {
		s.LatencyMin, s.LatencyMax = Duration(20*time.Millisecond), Duration(70*time.Millisecond)
	}
	if s.PauseMin == 0 && s.PauseMax == 0 {
		s.PauseMin, s.PauseMax = Duration(100*time.Millisecond), Duration(400*time.Millisecond)
	}
	if s.LatencyMax < s.LatencyMin || s.PauseMax < s.PauseMin {
		log.Println("Warning: simulation duration range max is below min. Using min for both bounds.")
		if s.LatencyMax < s.LatencyMin {
			s.LatencyMax = s.LatencyMin
		}
		if s.PauseMax < s.PauseMin {
			s.PauseMax = s.PauseMin
		}
	}
	return nil
}

// Defaults returns a configuration with every default applied.
func Defaults() *Configuration {
	cnf := &Configuration{}
	_ = cnf.validateAndAddDefaults()
	return cnf
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
