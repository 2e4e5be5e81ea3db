package api

import (
	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/service"
)

type App interface {
	Logger() internal.Logger
	Service() *service.Service
	AllowManualEvaluation() bool
}

type app struct {
	svc         *service.Service
	logger      internal.Logger
	allowManual bool
}

func NewApp(svc *service.Service, logger internal.Logger, allowManualEvaluation bool) App {
	return &app{svc: svc, logger: logger, allowManual: allowManualEvaluation}
}

func (a *app) Logger() internal.Logger     { return a.logger }
func (a *app) Service() *service.Service   { return a.svc }
func (a *app) AllowManualEvaluation() bool { return a.allowManual }
