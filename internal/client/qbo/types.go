package qboclient

// Wire shapes for the partner's v3 REST API. Field names follow the
// partner's JSON exactly; only the fields this backend touches are mapped.

type entityRef struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
}

type vendor struct {
	ID          string `json:"Id,omitempty"`
	DisplayName string `json:"DisplayName"`
}

type accountExpenseLineDetail struct {
	AccountRef entityRef `json:"AccountRef"`
}

type expenseLine struct {
	Amount     float64                   `json:"Amount"`
	DetailType string                    `json:"DetailType"`
	Detail     *accountExpenseLineDetail `json:"AccountBasedExpenseLineDetail,omitempty"`
	LinkedTxns []linkedTxn               `json:"LinkedTxn,omitempty"`
}

type linkedTxn struct {
	TxnID   string `json:"TxnId"`
	TxnType string `json:"TxnType"`
}

type purchase struct {
	ID          string        `json:"Id,omitempty"`
	PaymentType string        `json:"PaymentType"`
	AccountRef  entityRef     `json:"AccountRef"`
	EntityRef   *entityRef    `json:"EntityRef,omitempty"`
	TxnDate     string        `json:"TxnDate,omitempty"`
	TotalAmt    float64       `json:"TotalAmt,omitempty"`
	PrivateNote string        `json:"PrivateNote,omitempty"`
	Line        []expenseLine `json:"Line"`
}

type bill struct {
	ID          string        `json:"Id,omitempty"`
	SyncToken   string        `json:"SyncToken,omitempty"`
	VendorRef   entityRef     `json:"VendorRef"`
	TxnDate     string        `json:"TxnDate,omitempty"`
	DueDate     string        `json:"DueDate,omitempty"`
	PrivateNote string        `json:"PrivateNote,omitempty"`
	Line        []expenseLine `json:"Line"`
}

type checkPayment struct {
	BankAccountRef entityRef `json:"BankAccountRef"`
}

type creditCardPayment struct {
	CCAccountRef entityRef `json:"CCAccountRef"`
}

type billPayment struct {
	ID                string             `json:"Id,omitempty"`
	VendorRef         entityRef          `json:"VendorRef"`
	PayType           string             `json:"PayType"`
	TotalAmt          float64            `json:"TotalAmt"`
	TxnDate           string             `json:"TxnDate,omitempty"`
	CheckPayment      *checkPayment      `json:"CheckPayment,omitempty"`
	CreditCardPayment *creditCardPayment `json:"CreditCardPayment,omitempty"`
	Line              []expenseLine      `json:"Line"`
}

type attachableRef struct {
	EntityRef entityRef `json:"EntityRef"`
}

type attachable struct {
	ID             string          `json:"Id,omitempty"`
	FileName       string          `json:"FileName"`
	ContentType    string          `json:"ContentType"`
	AttachableRefs []attachableRef `json:"AttachableRef"`
}

// Envelopes. Create responses wrap the entity under its type name; query
// responses nest one level deeper.

type vendorEnvelope struct {
	Vendor vendor `json:"Vendor"`
}

type purchaseEnvelope struct {
	Purchase purchase `json:"Purchase"`
}

type billEnvelope struct {
	Bill bill `json:"Bill"`
}

type billPaymentEnvelope struct {
	BillPayment billPayment `json:"BillPayment"`
}

type queryEnvelope struct {
	QueryResponse struct {
		Vendor []vendor `json:"Vendor"`
	} `json:"QueryResponse"`
}

type attachableEnvelope struct {
	AttachableResponse []struct {
		Attachable attachable `json:"Attachable"`
	} `json:"AttachableResponse"`
}

type fault struct {
	Fault struct {
		Type  string `json:"type"`
		Error []struct {
			Message string `json:"Message"`
			Detail  string `json:"Detail"`
			Code    string `json:"code"`
		} `json:"Error"`
	} `json:"Fault"`
}

type tokenResponse struct {
	AccessToken          string `json:"access_token"`
	RefreshToken         string `json:"refresh_token"`
	TokenType            string `json:"token_type"`
	ExpiresIn            int64  `json:"expires_in"`
	XRefreshTokenExpires int64  `json:"x_refresh_token_expires_in"`
}

type tokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
