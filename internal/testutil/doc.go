// Package testutil contains request builders and collaborator fakes shared by
// the package tests. They are not intended for production usage.
package testutil
