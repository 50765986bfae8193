package domain

// Outcome is the total result of an indexing run. Err keeps the underlying
// error for errors.Is checks and is never serialized.
type Outcome struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// SearchOutcome is the total result of a search. Results is empty whenever OK is false.
type SearchOutcome struct {
	OK      bool          `json:"ok"`
	Message string        `json:"message"`
	Results []QueryResult `json:"results"`
	Err     error         `json:"-"`
}

// Succeeded builds a successful outcome.
func Succeeded(message string) Outcome {
	return Outcome{OK: true, Message: message}
}

// Failed builds a failed outcome whose message is prefixed with the action that failed.
func Failed(action string, err error) Outcome {
	return Outcome{OK: false, Message: action + ": " + err.Error(), Err: err}
}

// SearchFailed builds a failed search outcome with an empty result list.
func SearchFailed(action string, err error) SearchOutcome {
	return SearchOutcome{OK: false, Message: action + ": " + err.Error(), Results: []QueryResult{}, Err: err}
}
