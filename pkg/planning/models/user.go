package models

// UserData is the response of GET /user/data
type UserData struct {
	Conf *UserConf   `json:"conf,omitempty"`
	Cli  *UserClient `json:"cli,omitempty"`
	User *UserInfo   `json:"user,omitempty"`
}

type UserConf struct {
	Lang string    `json:"lang,omitempty"`
	Keys []ConfKey `json:"keys,omitempty"`
}

type ConfKey struct {
	Chave string `json:"chave"`
	Valor string `json:"valor"`
}

type UserClient struct {
	ID int64  `json:"id,omitempty"`
	TZ string `json:"tz,omitempty"`
}

type UserInfo struct {
	Acss []interface{} `json:"acss,omitempty"`
	Emp  []int64       `json:"emp,omitempty"`
	Nm   string        `json:"nm,omitempty"`
	ID   string        `json:"id,omitempty"`
}

const KeyOperationalDayStart = "INICIO_DIA_OPERACIONAL"

// ConfValue looks up a configuration key, returning "" when absent
func (u UserData) ConfValue(key string) string {
	if u.Conf == nil {
		return ""
	}
	for _, k := range u.Conf.Keys {
		if k.Chave == key {
			return k.Valor
		}
	}
	return ""
}
