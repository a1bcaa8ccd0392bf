package output

import (
	"chainforge/internal/application/port/input"
	"chainforge/internal/domain/entity"
)

type ChainRegistry interface {
	Register(id string, chain input.Chain)
	Get(id string) (input.Chain, bool)
	List() []entity.ChainInfo
	Remove(id string) (input.Chain, bool)
}
