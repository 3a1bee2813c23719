// Package ingest implements customer and order intake.
//
// The service validates submissions, persists them through the repository,
// and publishes one change event per accepted mutation. It depends only on
// interfaces defined in this package and should never import from the HTTP
// layer.
//
// The repository implementation lives in repository/postgres/.
package ingest
