// Package cli implements the instanthost command-line interface.
//
// Commands:
//
//	publish <target>   publish a file or directory (alias: deploy)
//	login [key]        store an API key in the credentials file
//	logout             remove the stored API key
//	status             show whether publishes are authenticated
//	list               show publishes recorded in the state file
//
// Standard output carries only machine-readable results (the site URL for
// publish). Everything else, including logs and publish_result.* lines, goes
// to standard error.
package cli
