package executor

import (
	"strings"

	"chainforge/internal/domain/entity"
)

const (
	thoughtPrefix     = "Thought:"
	actionPrefix      = "Action:"
	actionInputPrefix = "Action Input:"
)

// ParseAction extracts Thought, Action and Action Input from a reply. The
// first line starting with each prefix wins; other lines are ignored. A
// reply without a usable Action line is taken as the final answer, with
// the whole reply as its input.
func ParseAction(reply string) entity.AgentAction {
	var (
		action                            entity.AgentAction
		haveThought, haveAction, haveInput bool
	)

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case !haveThought && strings.HasPrefix(line, thoughtPrefix):
			action.Thought = strings.TrimSpace(strings.TrimPrefix(line, thoughtPrefix))
			haveThought = true
		case !haveAction && strings.HasPrefix(line, actionPrefix):
			action.ActionType = strings.TrimSpace(strings.TrimPrefix(line, actionPrefix))
			haveAction = true
		case !haveInput && strings.HasPrefix(line, actionInputPrefix):
			action.ActionInput = strings.TrimSpace(strings.TrimPrefix(line, actionInputPrefix))
			haveInput = true
		}
	}

	if action.ActionType == "" {
		action.ActionType = entity.ActionFinalAnswer
		action.ActionInput = reply
	}
	return action
}
