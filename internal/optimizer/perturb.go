package optimizer

import (
	"math"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// perturber produces neighbour candidates. It never mutates the set it is given.
type perturber struct {
	mid    float64
	maxDev float64 // price band is mid*(1 ± maxDev)
	target float64
	regime domain.RegimeParameters
	cfg    Config
	rng    Rand
}

func newPerturber(mid, target float64, regime domain.RegimeParameters, cfg Config, rng Rand) *perturber {
	return &perturber{
		mid:    mid,
		maxDev: 0.10 * (1 + regime.Volatility),
		target: target,
		regime: regime,
		cfg:    cfg,
		rng:    rng,
	}
}

// next applies one random move and restores the total-amount invariant.
func (p *perturber) next(current domain.Orders) domain.Orders {
	cand := current.Clone()
	v := p.regime.Volatility

	i := p.rng.IntN(len(cand))
	cand[i].Price = p.jitter(cand[i].Price)
	f := 1 + (2*p.rng.Float64()-1)*0.10*(1+0.5*v)
	cand[i].Amount = math.Max(p.cfg.MinOrderAmount, cand[i].Amount*f)

	if p.rng.Float64() < p.cfg.RedistributeProb {
		p.redistribute(cand)
	}

	switch r := p.rng.Float64(); {
	case r < p.cfg.DeleteProb:
		if len(cand) > p.cfg.MinOrders {
			cand = p.remove(cand)
		}
	case r < p.cfg.DeleteProb+p.cfg.SplitProb:
		if len(cand) < p.cfg.MaxOrders && float64(len(cand)+1)*p.cfg.MinOrderAmount <= p.target {
			cand = p.split(cand)
		}
	}

	rebalance(cand, p.target, p.cfg.MinOrderAmount)
	return cand
}

// jitter moves a price by a mixed-scale gaussian step: 70% small, 15% at 3x,
// 15% at 6x. The step grows with volatility and correlation.
func (p *perturber) jitter(price float64) float64 {
	scale := 1.0
	switch r := p.rng.Float64(); {
	case r >= 0.85:
		scale = 6
	case r >= 0.70:
		scale = 3
	}
	sigma := p.mid * p.cfg.PriceStep * (1 + p.regime.Volatility) * (1 + 0.5*p.regime.ExternalCorrelation)
	price += p.rng.NormFloat64() * sigma * scale
	return domain.Clamp(price, p.mid*(1-p.maxDev), p.mid*(1+p.maxDev))
}

func (p *perturber) redistribute(orders domain.Orders) {
	w := make([]float64, len(orders))
	var sum float64
	for i := range w {
		w[i] = 0.5 + p.rng.Float64()
		sum += w[i]
	}
	for i := range orders {
		orders[i].Amount = p.target * w[i] / sum
	}
}

// remove drops a random order; rebalance hands its amount to the rest.
func (p *perturber) remove(orders domain.Orders) domain.Orders {
	i := p.rng.IntN(len(orders))
	return append(orders[:i], orders[i+1:]...)
}

// split halves a random order; the new half gets a perturbed price.
func (p *perturber) split(orders domain.Orders) domain.Orders {
	i := p.rng.IntN(len(orders))
	half := orders[i].Amount / 2
	orders[i].Amount = half
	return append(orders, domain.Order{Price: p.jitter(orders[i].Price), Amount: half})
}

// rebalance rescales amounts so they sum to target. When the target allows
// it (target >= n*minAmount) every order keeps at least minAmount, the
// shortfall being taken from orders above the floor in proportion to their
// excess.
func rebalance(orders domain.Orders, target, minAmount float64) {
	n := len(orders)
	if n == 0 {
		return
	}

	sum := orders.TotalAmount()
	if sum <= 0 {
		for i := range orders {
			orders[i].Amount = target / float64(n)
		}
	} else {
		scale := target / sum
		for i := range orders {
			orders[i].Amount *= scale
		}
	}

	if target < float64(n)*minAmount {
		return
	}

	var deficit, excess float64
	for _, o := range orders {
		if o.Amount < minAmount {
			deficit += minAmount - o.Amount
		} else {
			excess += o.Amount - minAmount
		}
	}
	if deficit == 0 || excess <= 0 {
		return
	}
	for i := range orders {
		if orders[i].Amount < minAmount {
			orders[i].Amount = minAmount
		} else {
			orders[i].Amount -= deficit * (orders[i].Amount - minAmount) / excess
		}
	}
}

// clampCount forces the order count into [minOrders, maxOrders] by merging
// the most expensive orders or splitting the largest one.
func clampCount(orders domain.Orders, minOrders, maxOrders int) domain.Orders {
	for len(orders) > maxOrders {
		last := len(orders) - 1
		orders[last-1].Amount += orders[last].Amount
		orders = orders[:last]
	}
	for len(orders) < minOrders && len(orders) > 0 {
		big := 0
		for i := range orders {
			if orders[i].Amount > orders[big].Amount {
				big = i
			}
		}
		half := orders[big].Amount / 2
		orders[big].Amount = half
		orders = append(orders, domain.Order{Price: orders[big].Price, Amount: half})
	}
	return orders
}
