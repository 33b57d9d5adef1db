package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ApiTrip is one executed-trip record as returned by the trip-query API.
// Every field except the identifier is optional upstream.
type ApiTrip struct {
	IDViagemExecutada   string        `json:"idViagemExecutada"`
	Data                *string       `json:"data,omitempty"`
	DataFim             *string       `json:"dataFim,omitempty"`
	DataFormatada       string        `json:"dataFormatada"`
	DataAbertura        *string       `json:"dataAbertura,omitempty"`
	DataFechamento      *string       `json:"dataFechamento,omitempty"`
	IDVeiculo           *string       `json:"idVeiculo,omitempty"`
	VeiculoReal         *string       `json:"veiculoReal,omitempty"`
	PartidaReal         *string       `json:"partidaReal,omitempty"`
	ChegadaReal         *string       `json:"chegadaReal,omitempty"`
	VelocidadeMedia     *float64      `json:"velocidadeMedia,omitempty"`
	Duracao             *string       `json:"duracao,omitempty"`
	DuracaoSeg          *float64      `json:"duracaoSeg,omitempty"`
	PercentualConclusao *Percent      `json:"percentualConclusao,omitempty"`
	TipoViagem          *int          `json:"tipoViagem,omitempty"`
	EmExecucao          *bool         `json:"emExecucao,omitempty"`
	Excluido            *bool         `json:"excluido,omitempty"`
	KmPlanejado         *float64      `json:"kmPlanejado,omitempty"`
	IDPlanejamento      *int64        `json:"idPlanejamento,omitempty"`
	IDLinha             *string       `json:"idLinha,omitempty"`
	IDTabela            *int64        `json:"idTabela,omitempty"`
	NmTabela            *string       `json:"nmTabela,omitempty"`
	IDHorario           *int64        `json:"idHorario,omitempty"`
	IDEmpresaPlanejada  *int64        `json:"idEmpresaPlanejada,omitempty"`
	VeiculoPlan         *string       `json:"veiculoPlan,omitempty"`
	PartidaPlan         *string       `json:"partidaPlan,omitempty"`
	ChegadaPlan         *string       `json:"chegadaPlan,omitempty"`
	Status              *int          `json:"status,omitempty"`
	DiffPartida         *float64      `json:"diffPartida,omitempty"`
	DiffChegada         *float64      `json:"diffChegada,omitempty"`
	QtdPassageiros      *float64      `json:"qtdPassageiros,omitempty"`
	HeadwayStr          *string       `json:"headwayStr,omitempty"`
	Headway             *float64      `json:"headway,omitempty"`
	CdMotorista         *string       `json:"cdMotorista,omitempty"`
	NmMotorista         *string       `json:"nmMotorista,omitempty"`
	Trajeto             *TripRoute    `json:"trajeto,omitempty"`
	Apresentacao        *Presentation `json:"apresentacao,omitempty"`
}

// TripRoute is the route sub-object of a trip. It is passed back unchanged
// on mutation calls.
type TripRoute struct {
	ID          string    `json:"id"`
	Nome        string    `json:"nome"`
	Sentido     string    `json:"sentido"`
	NumeroLinha string    `json:"numeroLinha"`
	EndPoint    *EndPoint `json:"endPoint,omitempty"`
}

type EndPoint struct {
	ID   string `json:"id"`
	Nome string `json:"nome"`
}

type Presentation struct {
	ClasseExecucaoViagem        string `json:"classeExecucaoViagem"`
	ClasseExecucaoViagemToolTip string `json:"classeExecucaoViagemToolTip"`
	ClasseStatusViagem          string `json:"classeStatusViagem"`
	ClasseAlerta                string `json:"classeAlerta"`
	AlertaProximo               bool   `json:"alertaProximo"`
}

// QueryRequest is the body of PUT .../v1/dashboard/consultar
type QueryRequest struct {
	DataInicio           string  `json:"dataInicio"`
	DataFim              string  `json:"dataFim"`
	HoraInicio           string  `json:"horaInicio"`
	HoraFim              string  `json:"horaFim"`
	Empresas             []int64 `json:"empresas"`
	Trajetos             []Route `json:"trajetos"`
	IDCliente            int64   `json:"idCliente"`
	Ordenacao            string  `json:"ordenacao"`
	Timezone             string  `json:"timezone"`
	InicioDiaOperacional string  `json:"inicioDiaOperacional"`
}

// QueryResponse only requires Viagens; the other members are passed through.
type QueryResponse struct {
	Totalizadores map[string]interface{} `json:"totalizadores,omitempty"`
	Viagens       []ApiTrip              `json:"viagens"`
	Falhas        interface{}            `json:"falhas,omitempty"`
}

// Percent is a completion percentage. The API sends it either as a string
// ("85.5", "85,5%") or as a bare number.
type Percent string

func (p *Percent) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Percent(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("percentage must be a string or a number: %w", err)
	}
	*p = Percent(n.String())
	return nil
}
