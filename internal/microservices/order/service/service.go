package service

type Service struct {
	OrderService OrderServiceInterface
}

func New(d Deps) *Service {
	return &Service{
		OrderService: NewOrderService(d),
	}
}
