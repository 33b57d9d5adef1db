package models

// Operation codes of the editarHorario/incluirHorario endpoints
const (
	OperationInclude = 0
	OperationEdit    = 1
	OperationDelete  = 2
)

// ScheduleChange is one entry sent to editarHorario or incluirHorario
type ScheduleChange struct {
	Data           string `json:"data"`
	IDPlanejamento int64  `json:"idPlanejamento"`
	IDTabela       int64  `json:"idTabela"`
	IDHorario      *int64 `json:"idHorario,omitempty"`
	TipoOperacao   int    `json:"tipoOperacao"`
	IDTrajeto      string `json:"idTrajeto"`
	IDCliente      int64  `json:"idCliente"`
	Partida        string `json:"partida,omitempty"`
	Chegada        string `json:"chegada,omitempty"`
	PartidaMs      *int64 `json:"partidaMs,omitempty"`
	ChegadaMs      *int64 `json:"chegadaMs,omitempty"`
}

// TripDeletion is JSON-encoded into the excluirViagem path
type TripDeletion struct {
	IDViagem       string `json:"idViagem"`
	Usuario        string `json:"usuario"`
	MotivoExclusao string `json:"motivoExclusao"`
}

type Vehicle struct {
	CodVeiculo string `json:"cod_veiculo"`
	Prefixo    string `json:"prefixo,omitempty"`
	Placa      string `json:"placa,omitempty"`
}

// TripEdit reassigns the vehicle of a planned trip
type TripEdit struct {
	DataInicio         string   `json:"dataInicio"`
	GmtCliente         string   `json:"gmtCliente"`
	HoraInicial        string   `json:"horaInicial"`
	Horario            string   `json:"horario"`
	IDPlanejamento     string   `json:"idPlanejamento"`
	Nome               string   `json:"nome"`
	SomenteEsteHorario *bool    `json:"somenteEsteHorario"`
	TabelaID           string   `json:"tabelaId"`
	Trajetos           []string `json:"trajetos"`
	Veiculo            Vehicle  `json:"veiculo"`
	VeiculosAuditoria  []string `json:"veiculosAuditoria"`
}

type ObservationUser struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

type Observation struct {
	DataAtualizacao    string          `json:"dataAtualizacao"`
	Mensagem           string          `json:"mensagem"`
	UsuarioCriacao     ObservationUser `json:"usuarioCriacao"`
	CheckedNotificacao bool            `json:"checkedNotificacao"`
	ViagemData         ApiTrip         `json:"viagemData"`
}

// ObservationRequest is the body of incluirInformacao
type ObservationRequest struct {
	Observacao Observation `json:"observacao"`
	ViagemID   string      `json:"viagemId"`
}
