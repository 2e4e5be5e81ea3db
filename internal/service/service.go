package service

import (
	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/clock"
	"github.com/daftuyda/Igris/internal/scoring"
	"github.com/daftuyda/Igris/internal/storage"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Service owns the evaluation engine and every mutation of a user's tasks.
// All writes for one user are serialized through its lock table.
type Service struct {
	store  storage.Store
	clock  clock.Clock
	zones  *clock.Resolver
	policy scoring.Policy
	logger internal.Logger
	locks  *userLocks
}

func New(store storage.Store, clk clock.Clock, zones *clock.Resolver, policy scoring.Policy, logger internal.Logger) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if zones == nil {
		zones = clock.NewResolver("UTC")
	}
	return &Service{
		store:  store,
		clock:  clk,
		zones:  zones,
		policy: policy,
		logger: logger,
		locks:  newUserLocks(),
	}
}

func (s *Service) Store() storage.Store { return s.store }
func (s *Service) Clock() clock.Clock   { return s.clock }
