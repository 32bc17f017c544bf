package crossfire

import "github.com/vigiamaps/occurrence-hotspots/internal/model"

// Response envelopes of the Fogo Cruzado API. Every endpoint wraps its
// payload in a data field; the occurrences endpoint additionally reports an
// application-level code that can disagree with the HTTP status.

type loginResponse struct {
	Data struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

type namedEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listResponse struct {
	Data []namedEntity `json:"data"`
}

type occurrencesResponse struct {
	Code int                    `json:"code"`
	Data []model.IncidentRecord `json:"data"`
}
