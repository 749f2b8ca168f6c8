package extract

import (
	"encoding/json"
	"strings"

	"github.com/jackzampolin/docfields/internal/evidence"
)

// The worked example included in every prompt. It shows how each value is
// backed by the ids of the tokens it was read from, and that a value with
// no supporting token gets an empty id list.
var exampleTokens = []evidence.Token{
	{ID: 0, Content: "Order date: 2023-05-01", Points: [][]float64{{50, 120}, {250, 120}, {250, 150}, {50, 150}}},
	{ID: 1, Content: "Contract work: Delivery", Points: [][]float64{{50, 180}, {300, 180}, {300, 210}, {50, 210}}},
	{ID: 2, Content: "Operation date: 2023-05-15", Points: [][]float64{{50, 240}, {250, 240}, {250, 270}, {50, 270}}},
	{ID: 3, Content: "A001", Points: [][]float64{{50, 400}, {100, 400}, {100, 430}, {50, 430}}},
	{ID: 4, Content: "Tokyo", Points: [][]float64{{150, 400}, {200, 400}, {200, 430}, {150, 430}}},
	{ID: 5, Content: "Osaka", Points: [][]float64{{250, 400}, {300, 400}, {300, 430}, {250, 430}}},
}

const exampleOutput = `{
  "order_date": "2023-05-01",
  "operation_info": {
    "contract_work": "Delivery",
    "operation_date": "2023-05-15"
  },
  "shipment_details": [
    {
      "reception_number": "A001",
      "destination": "Tokyo",
      "origin": "Osaka",
      "vehicle_number": "",
      "fare": ""
    }
  ],
  "indices": {
    "order_date": [0],
    "operation_info": {
      "contract_work": [1],
      "operation_date": [2]
    },
    "shipment_details": [
      {
        "reception_number": [3],
        "destination": [4],
        "origin": [5],
        "vehicle_number": [],
        "fare": []
      }
    ]
  }
}`

// ExampleTokens returns the worked example's evidence tokens.
func ExampleTokens() []evidence.Token {
	out := make([]evidence.Token, len(exampleTokens))
	copy(out, exampleTokens)
	return out
}

// ExampleOutput returns the worked example's expected response document.
func ExampleOutput() string {
	return exampleOutput
}

// tokenLines renders tokens one JSON object per line, id and content only.
func tokenLines(tokens []evidence.Token) string {
	type wire struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
	}
	lines := make([]string, 0, len(tokens))
	for _, t := range tokens {
		b, err := json.Marshal(wire{ID: t.ID, Content: t.Content})
		if err != nil {
			continue
		}
		lines = append(lines, string(b))
	}
	return strings.Join(lines, "\n")
}
