package bank

import (
	"context"
	"math/rand"
	"time"

	"github.com/globalbank/globalbank-be/internal/models"
)

// rewardProbability is the per-tick chance each user receives one mining
// reward on top of the prorated daily credit.
const rewardProbability = 0.1

const secondsPerDay = 24 * 60 * 60

var defaultRewardRoll = rand.New(rand.NewSource(time.Now().UnixNano())).Float64

// AccrueTick runs one mining pass: every user gains the prorated daily
// credit, and with probability 0.1 one mining reward. The whole pass
// commits in a single document save, so readers never observe a partial
// tick. Returns false when mining is disabled, telling the miner to stop.
// A failed document read aborts the tick with the error; the miner must
// stop rather than continue against stale state.
func (s *Service) AccrueTick(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if !doc.Settings.MiningEnabled {
		return false, nil
	}

	perTick := doc.Settings.DailyCredit * s.tickPeriod.Seconds() / secondsPerDay
	for i := range doc.Users {
		user := &doc.Users[i]
		if user.Role != models.RoleCustomer {
			continue
		}
		user.Balance += perTick
		if s.rewardRoll() < rewardProbability {
			user.MinedCoins += doc.Settings.MiningReward
			user.CryptoBalance += doc.Settings.MiningReward
		}
	}

	if err := s.store.Save(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}
