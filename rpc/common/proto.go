package common

import (
	"strings"
)

// --------------------------------------------------------------------------
// Verbs (client -> server)
// --------------------------------------------------------------------------

// Verb is the first word of a command frame.
type Verb string

const (
	VerbConnect    Verb = "CONNECT"
	VerbPut        Verb = "PUT"
	VerbGet        Verb = "GET"
	VerbDelete     Verb = "DELETE"
	VerbDisconnect Verb = "DISCONNECT"
)

// --------------------------------------------------------------------------
// Response literals (server -> client)
// --------------------------------------------------------------------------

const (
	RespConnectOK    = "CONNECT: OK"
	RespConnectError = "CONNECT: ERROR"
	RespConnectTaken = "CONNECT: ID already taken"

	RespPutOK = "PUT: OK"

	RespGetNotFound = "GET: KEY DOES NOT EXIST"

	RespDeleteOK       = "DELETE: OK"
	RespDeleteNotFound = "DELETE: Key does not exist"

	RespDisconnectOK = "DISCONNECT: OK"

	// RespTooManyRequests is sent unsolicited right before the server drops a
	// connection that exceeded its rate limit
	RespTooManyRequests = "ERROR: TOO MANY REQUESTS, CONNECTION DROPPED"

	// RespInvalidRequest answers unknown verbs and keys that fail sanitization.
	// The connection stays open.
	RespInvalidRequest = "Error: Invalid request format"

	// RespInternalError answers a command whose processing failed unexpectedly.
	// The connection stays open.
	RespInternalError = "Error: Server encountered an unexpected error"
)

// --------------------------------------------------------------------------
// Command parsing
// --------------------------------------------------------------------------

// Command is a parsed command frame of the form "<VERB> <ARG>".
type Command struct {
	Verb   Verb
	Arg    string
	HasArg bool
}

// ParseCommand splits msg at the first space into verb and argument.
// The argument is optional; everything after the first space belongs to it.
func ParseCommand(msg string) Command {
	verb, arg, found := strings.Cut(msg, " ")
	return Command{
		Verb:   Verb(verb),
		Arg:    arg,
		HasArg: found,
	}
}

// String renders the command back into its wire form.
func (c Command) String() string {
	if !c.HasArg {
		return string(c.Verb)
	}
	return string(c.Verb) + " " + c.Arg
}

// NewCommand creates a command with an argument.
func NewCommand(verb Verb, arg string) Command {
	return Command{Verb: verb, Arg: arg, HasArg: true}
}
