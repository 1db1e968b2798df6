// Package provision contains the cloud collaborators modules
// synthesize against: a live AWS implementation, an in-memory
// implementation for dry runs and tests, and the parameter-store
// sinks the output registry forwards to.
package provision
