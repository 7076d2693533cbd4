// internal/store/search/directory.go
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"blood-alert-workers/internal/models"
)

// DefaultPageSize is the number of hits fetched per search_after page.
const DefaultPageSize = 500

// patientDoc mirrors the documents in the patients index.
type patientDoc struct {
	PatientID           string `json:"patientId"`
	Name                string `json:"name"`
	BloodGroup          string `json:"bloodGroup"`
	ContactNumber       string `json:"contactNumber"`
	BloodDonation       bool   `json:"bloodDonation"`
	BloodDonationStatus string `json:"bloodDonationStatus"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value    int    `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []struct {
			Source patientDoc    `json:"_source"`
			Sort   []interface{} `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

// Directory queries eligible donors from an Elasticsearch patients index using exact term filters.
// Results are paged with search_after so no eligible donor is dropped.
type Directory struct {
	client   *elasticsearch.Client
	index    string
	pageSize int
}

func NewDirectory(client *elasticsearch.Client, index string, pageSize int) *Directory {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Directory{client: client, index: index, pageSize: pageSize}
}

func buildEligibleQuery(bloodGroup string, size int, after []interface{}) map[string]interface{} {
	q := map[string]interface{}{
		"size":             size,
		"track_total_hits": true,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"bloodGroup": bloodGroup}},
					map[string]interface{}{"term": map[string]interface{}{"bloodDonation": true}},
					map[string]interface{}{"term": map[string]interface{}{"bloodDonationStatus": models.AvailabilityAvailable}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"patientId": "asc"},
		},
	}
	if len(after) > 0 {
		q["search_after"] = after
	}
	return q
}

// QueryEligibleDonors walks every page of matches. A result shorter than the reported total is an error.
func (d *Directory) QueryEligibleDonors(ctx context.Context, bloodGroup string) ([]models.Donor, error) {
	var (
		donors []models.Donor
		after  []interface{}
		total  int
		exact  bool
	)
	for page := 0; ; page++ {
		parsed, err := d.searchPage(ctx, bloodGroup, after)
		if err != nil {
			return nil, err
		}
		if page == 0 {
			total = parsed.Hits.Total.Value
			exact = parsed.Hits.Total.Relation == "" || parsed.Hits.Total.Relation == "eq"
			donors = make([]models.Donor, 0, total)
		}

		for _, h := range parsed.Hits.Hits {
			donors = append(donors, models.Donor{
				PatientID:          h.Source.PatientID,
				Name:               h.Source.Name,
				BloodGroup:         h.Source.BloodGroup,
				ContactNumber:      h.Source.ContactNumber,
				DonationOptIn:      h.Source.BloodDonation,
				AvailabilityStatus: h.Source.BloodDonationStatus,
			})
		}

		hits := parsed.Hits.Hits
		if len(hits) < d.pageSize {
			break
		}
		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, fmt.Errorf("search %s: page %d returned hits without sort values", d.index, page)
		}
	}

	if exact && total > len(donors) {
		return nil, fmt.Errorf("search %s: collected %d of %d eligible donors", d.index, len(donors), total)
	}
	return donors, nil
}

func (d *Directory) searchPage(ctx context.Context, bloodGroup string, after []interface{}) (*searchResponse, error) {
	body, err := json.Marshal(buildEligibleQuery(bloodGroup, d.pageSize, after))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{d.index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, d.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", d.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", d.index, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &parsed, nil
}
