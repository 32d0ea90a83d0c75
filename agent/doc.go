// Package agent contains the routable agents and the dispatcher that selects
// one of them by declared type key.
//
// Every agent is a ModelAgent specialized by kind: it renders retrieved memory
// into its prompt, calls the registry tools it is configured with and asks the
// language model for the final answer. The Dispatcher maps a normalized type
// key to an agent and falls back to a designated default kind for unknown
// keys, reporting whether the key matched.
package agent
