package repository

import (
	"restaurant-system/internal/common/retry"
	"restaurant-system/internal/store"
)

type Repository struct {
	OrderRepo OrderRepositoryInterface
}

func New(st store.Store, policy retry.Policy) *Repository {
	return &Repository{
		OrderRepo: NewOrderRepository(st, policy),
	}
}
