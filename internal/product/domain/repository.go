package domain

import "github.com/AdrianPopi/acont/pkg/repository"

type Repository = repository.Repository[Product]
