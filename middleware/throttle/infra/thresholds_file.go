package infra

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FileThresholds lê o mapa rota→threshold de um arquivo de configuração
// (YAML/JSON/TOML, o que o viper aceitar) e recarrega sozinho quando o
// arquivo muda no disco.
//
// Formato esperado (a lista evita que o viper normalize os paths das rotas
// como se fossem chaves aninhadas):
//
//	routes:
//	  - route: /api/applications
//	    rps: 2
//	  - route: /api/users
//	    rps: 100
type FileThresholds struct {
	v   *viper.Viper
	log *zap.Logger

	snapshot atomic.Pointer[map[string]int]
}

type fileRoute struct {
	Route string `mapstructure:"route"`
	RPS   int    `mapstructure:"rps"`
}

type FileThresholdsOption func(*FileThresholds)

// WithFileThresholdsLogger registra falhas de reload (o snapshot anterior
// continua valendo quando o arquivo fica inválido).
func WithFileThresholdsLogger(log *zap.Logger) FileThresholdsOption {
	return func(s *FileThresholds) { s.log = log }
}

func NewFileThresholds(path string, opts ...FileThresholdsOption) (*FileThresholds, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	s := &FileThresholds{v: v}
	for _, opt := range opts {
		opt(s)
	}

	empty := map[string]int{}
	s.snapshot.Store(&empty)
	s.reload()

	v.OnConfigChange(func(fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			if s.log != nil {
				s.log.Warn("file thresholds: releitura falhou", zap.Error(err))
			}
			return
		}
		s.reload()
	})
	v.WatchConfig()

	return s, nil
}

// Current implementa domain.ThresholdSource.
func (s *FileThresholds) Current() map[string]int {
	return *s.snapshot.Load()
}

func (s *FileThresholds) reload() {
	var rows []fileRoute
	if err := s.v.UnmarshalKey("routes", &rows); err != nil {
		if s.log != nil {
			s.log.Warn("file thresholds: formato inválido", zap.Error(err))
		}
		return
	}

	m := make(map[string]int, len(rows))
	for _, row := range rows {
		if row.Route == "" || row.RPS <= 0 {
			continue
		}
		m[row.Route] = row.RPS
	}
	s.snapshot.Store(&m)
}
