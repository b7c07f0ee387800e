package api

import (
	"github.com/JaimeStill/mention-analyzer/internal/mentions"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Mentions mentions.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	return &Domain{
		Mentions: mentions.New(
			runtime.Database.Connection(),
			runtime.Logger,
			runtime.Pagination,
		),
	}
}
