package conf

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
	"github.com/txix-open/isp-kit/rc/schema"
	"github.com/txix-open/jsonschema"
)

const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"

	defaultHardCeiling       = 333000
	defaultSummaryCacheInSec = 5
)

func init() {
	schema.CustomGenerators.Register("logLevel", func(field reflect.StructField, t *jsonschema.Schema) {
		t.Type = "string"
		t.Enum = []interface{}{"debug", "info", "error", "fatal"}
	})
}

type Remote struct {
	Redis   *Redis  `schema:"Настройки Redis,хранилище состояний ограничителей и суточных квот" valid:"required~Required"`
	Logging Logging `schema:"Настройки логирования"`
	Quota   Quota   `schema:"Настройки суточных квот"`
}

type Logging struct {
	LogLevel log.Level `schemaGen:"logLevel" schema:"Уровень логирования,логирование запросов осуществляется на уровне debug"`
}

type Quota struct {
	HardCeilingPerDay int64       `schema:"Абсолютный потолок запросов в сутки,общий для всех тарифов, по умолчанию: 333000"`
	Plans             []PlanLimit `schema:"Настройки тарифов,по умолчанию: free, pro, enterprise"`
	SummaryCacheInSec int         `schema:"Время кеширования административной сводки,в секундах, по умолчанию: 5"`
}

type PlanLimit struct {
	Name                  string `valid:"required~Required" schema:"Название тарифа"`
	RequestsPerDay        int64  `valid:"required~Required" schema:"Запросов в сутки,на одного пользователя"`
	GlobalThresholdPerDay int64  `valid:"required~Required" schema:"Порог общего счетчика,мягкое ограничение тарифа на общий суточный бюджет"`
}

type Redis struct {
	Address  string         `schema:"Адрес,обязателено, если sentinel не указан"`
	Username string         `schema:"Имя пользовтаеля"`
	Password string         `schema:"Пароль"`
	Sentinel *RedisSentinel `schema:"Настройки sentinel,обязательно, если address не указан"`
}

type RedisSentinel struct {
	Addresses  []string `valid:"required~Required" schema:"Адреса нод в кластере"`
	MasterName string   `valid:"required~Required" schema:"Имя мастера"`
	Username   string   `schema:"Имя пользовтаеля в sentinel"`
	Password   string   `schema:"Пароль в sentinel"`
}

func (q Quota) GetHardCeiling() int64 {
	if q.HardCeilingPerDay <= 0 {
		return defaultHardCeiling
	}
	return q.HardCeilingPerDay
}

func (q Quota) GetPlans() []PlanLimit {
	if len(q.Plans) > 0 {
		return q.Plans
	}
	return []PlanLimit{
		{Name: PlanFree, RequestsPerDay: 5000, GlobalThresholdPerDay: 200000},
		{Name: PlanPro, RequestsPerDay: 20000, GlobalThresholdPerDay: 250000},
		{Name: PlanEnterprise, RequestsPerDay: 50000, GlobalThresholdPerDay: 300000},
	}
}

func (q Quota) GetSummaryCacheInSec() int {
	if q.SummaryCacheInSec <= 0 {
		return defaultSummaryCacheInSec
	}
	return q.SummaryCacheInSec
}

func (r Remote) Validate() error {
	if r.Redis == nil {
		return errors.New("redis config is required")
	}
	if r.Redis.Sentinel == nil && r.Redis.Address == "" {
		return errors.New("invalid redis config. sentinel or address are required")
	}

	ceiling := r.Quota.GetHardCeiling()
	names := make(map[string]bool)
	for _, plan := range r.Quota.GetPlans() {
		if names[plan.Name] {
			return errors.Errorf("duplicated plan '%s'", plan.Name)
		}
		names[plan.Name] = true
		if plan.GlobalThresholdPerDay > ceiling {
			return errors.Errorf("plan '%s': global threshold is greater than hard ceiling", plan.Name)
		}
	}

	return nil
}
