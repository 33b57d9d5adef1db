package models

type Company struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

// Route is a directional path of a line (trajeto)
type Route struct {
	ID           string `json:"_id"`
	Nome         string `json:"nome"`
	Sentido      string `json:"sentido"`
	NomeExibicao string `json:"nomeExibicao,omitempty"`
	NumeroLinha  string `json:"numeroLinha,omitempty"`
	GtfsShapeID  string `json:"gtfsShapeId,omitempty"`
}

type ConsortiumRef struct {
	ConsorcioID int64 `json:"consorcioId"`
}

// Line as returned by GET .../linhasTrajetos/{idCliente}
type Line struct {
	ID          string          `json:"_id"`
	ClienteID   int64           `json:"clienteId,omitempty"`
	Descr       string          `json:"descr"`
	Numero      string          `json:"numero"`
	Trajetos    []Route         `json:"trajetos"`
	Empresas    []Company       `json:"empresas,omitempty"`
	Consorcio   *ConsortiumRef  `json:"consorcio,omitempty"`
	Consorcios  []ConsortiumRef `json:"consorcios,omitempty"`
	GtfsRouteID string          `json:"gtfsRouteId,omitempty"`
}

// BelongsTo reports whether the line is tagged with the consortium id,
// either as its main consortium or in its list.
func (l Line) BelongsTo(consortiumID int64) bool {
	if l.Consorcio != nil && l.Consorcio.ConsorcioID == consortiumID {
		return true
	}
	for _, c := range l.Consorcios {
		if c.ConsorcioID == consortiumID {
			return true
		}
	}
	return false
}

type Consortium struct {
	ConsorcioID int64  `json:"consorcioId"`
	Consorcio   string `json:"consorcio"`
}
