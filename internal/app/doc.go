// Package app composes the query core into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── core/service/       # Service descriptors
//	├── domain/entity/      # Row models (pure data structures)
//	├── metrics/            # Prometheus collectors
//	├── services/           # One service per list endpoint
//	├── storage/            # Store interfaces and the in-memory store
//	│   └── postgres/       # sqlx implementation against the mirror node schema
//	└── system/             # Lifecycle manager
//
// # Request Flow
//
// Every list service follows the same steps:
//
//  1. filter.Parser builds, validates and formats the query parameters
//  2. timerange.Resolver folds timestamp filters where the endpoint needs one range
//  3. the query package compiles the filters into a positional where clause
//  4. the store appends its ordering, binds the limit and runs the statement
//  5. query.Paginator derives the next link from the last row
//
// The core packages (entityid, filter, timerange, query) know nothing about
// storage; services hand stores a query.Query and receive rows back.
//
// # Adding an Endpoint
//
//  1. Add the row model to internal/app/domain/entity
//  2. Add the store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/postgres and in the in-memory store
//  4. Create the service in internal/app/services/<name>/service.go
//  5. Wire it in internal/app/application.go
package app
