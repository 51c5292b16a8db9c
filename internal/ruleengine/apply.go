package ruleengine

import (
	"github.com/jcgurango/meremail/internal/metrics"
	"github.com/jcgurango/meremail/internal/store"
)

const retroactiveBatchSize = 100

// StartRetroactiveApplication creates a RuleApplication row and runs the
// batch job in the background, returning immediately with the row so the
// caller can poll it (spec §4.D "Retroactive application", §8 S6).
func (e *Engine) StartRetroactiveApplication(ruleID uint) (*store.RuleApplication, error) {
	rule, err := e.store.GetRule(ruleID)
	if err != nil {
		return nil, err
	}
	app, err := e.store.CreateRuleApplication(ruleID)
	if err != nil {
		return nil, err
	}

	go e.runRetroactive(app.ID, *rule)

	return app, nil
}

func (e *Engine) runRetroactive(appID uint, rule store.Rule) {
	cond, err := ParseConditions(rule.ConditionsRaw)
	if err != nil {
		_ = e.store.FailRuleApplication(appID, err.Error())
		metrics.RuleApplications.WithLabelValues("failed").Inc()
		return
	}

	total, err := e.store.CountThreads()
	if err != nil {
		_ = e.store.FailRuleApplication(appID, err.Error())
		metrics.RuleApplications.WithLabelValues("failed").Inc()
		return
	}

	var processed, matched int
	offset := 0
	for {
		batch, err := e.store.ListThreadsPage("", retroactiveBatchSize, offset)
		if err != nil {
			_ = e.store.FailRuleApplication(appID, err.Error())
			metrics.RuleApplications.WithLabelValues("failed").Inc()
			return
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			th := batch[i]
			processed++
			m, err := e.store.GetEarliestThreadMessage(th.ID)
			if err != nil {
				e.log.Error("retroactive rule application: earliest message lookup failed", err)
				continue
			}
			ctx, err := buildContext(e.store, m)
			if err != nil {
				e.log.Error("retroactive rule application: context build failed", err)
				continue
			}
			if !Evaluate(cond, ctx) {
				continue
			}
			matched++
			if err := e.applyAction(rule, th.ID, nil); err != nil {
				e.log.Error("retroactive rule application: action failed", err)
			}
		}

		offset += len(batch)
		if err := e.store.UpdateRuleApplicationProgress(appID, int(total), processed, matched); err != nil {
			e.log.Error("retroactive rule application: progress update failed", err)
		}

		if len(batch) < retroactiveBatchSize {
			break
		}
	}

	if err := e.store.CompleteRuleApplication(appID); err != nil {
		e.log.Error("retroactive rule application: completion update failed", err)
		return
	}
	metrics.RuleApplications.WithLabelValues("completed").Inc()
}
