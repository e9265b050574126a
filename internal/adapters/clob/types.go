package clob

// DTOs raw de la API del CLOB. Solo se usan dentro de este paquete.

// orderBookRequest es un item del body de POST /books.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse es un book de GET /book o un item de POST /books.
type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
