package data

import (
	"encoding/json"
	"io"
	"os"

	"spain-energy/internal/model"
)

func LoadPriceJSON(path string) (*model.PriceFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodePriceJSON(f)
}

func DecodePriceJSON(r io.Reader) (*model.PriceFile, error) {
	var pf model.PriceFile
	if err := json.NewDecoder(r).Decode(&pf); err != nil {
		return nil, err
	}
	return &pf, nil
}
