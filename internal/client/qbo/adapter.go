package qboclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/errs"
)

const (
	productionAPIBase = "https://quickbooks.api.intuit.com"
	sandboxAPIBase    = "https://sandbox-quickbooks.api.intuit.com"
	tokenEndpoint     = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	revokeEndpoint    = "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"

	minorVersion   = "65"
	requestTimeout = 30 * time.Second
)

type Adapter struct {
	http         *http.Client
	apiBase      string
	tokenURL     string
	revokeURL    string
	clientID     string
	clientSecret string
	redirectURI  string
}

func NewAdapter(clientID, clientSecret, redirectURI string, env dto.LedgerEnvironment) *Adapter {
	base := productionAPIBase
	if env == dto.LedgerSandbox {
		base = sandboxAPIBase
	}
	return &Adapter{
		http:         &http.Client{Timeout: requestTimeout},
		apiBase:      base,
		tokenURL:     tokenEndpoint,
		revokeURL:    revokeEndpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
	}
}

// FindVendorByName looks a vendor up by exact display name. Returns ""
// when no vendor matches.
func (a *Adapter) FindVendorByName(ctx context.Context, accessToken, realmID, displayName string) (string, error) {
	query := fmt.Sprintf("SELECT Id, DisplayName FROM Vendor WHERE DisplayName = '%s'", escapeQueryValue(displayName))

	var out queryEnvelope
	if err := a.get(ctx, accessToken, realmID, "query", url.Values{"query": {query}}, &out); err != nil {
		return "", err
	}
	if len(out.QueryResponse.Vendor) == 0 {
		return "", nil
	}
	return out.QueryResponse.Vendor[0].ID, nil
}

func (a *Adapter) CreateVendor(ctx context.Context, accessToken, realmID, displayName string) (string, error) {
	var out vendorEnvelope
	err := a.post(ctx, accessToken, realmID, "vendor", nil, vendor{DisplayName: displayName}, &out)
	if err != nil {
		return "", err
	}
	return out.Vendor.ID, nil
}

func (a *Adapter) CreatePurchase(ctx context.Context, accessToken, realmID string, in dto.PurchaseCreate) (string, error) {
	body := purchase{
		PaymentType: in.PaymentType,
		AccountRef:  entityRef{Value: in.PaymentAccountID},
		EntityRef:   &entityRef{Value: in.VendorID, Type: "Vendor"},
		TxnDate:     in.TxnDate,
		PrivateNote: in.Note,
		Line: []expenseLine{{
			Amount:     in.Amount,
			DetailType: "AccountBasedExpenseLineDetail",
			Detail:     &accountExpenseLineDetail{AccountRef: entityRef{Value: in.CategoryID}},
		}},
	}

	var out purchaseEnvelope
	if err := a.post(ctx, accessToken, realmID, "purchase", nil, body, &out); err != nil {
		return "", err
	}
	return out.Purchase.ID, nil
}

// CreateBill returns the bill id plus its sync token; the sync token is
// needed if the bill has to be deleted during compensation.
func (a *Adapter) CreateBill(ctx context.Context, accessToken, realmID string, in dto.BillCreate) (string, string, error) {
	body := bill{
		VendorRef:   entityRef{Value: in.VendorID},
		TxnDate:     in.TxnDate,
		DueDate:     in.DueDate,
		PrivateNote: in.Note,
		Line: []expenseLine{{
			Amount:     in.Amount,
			DetailType: "AccountBasedExpenseLineDetail",
			Detail:     &accountExpenseLineDetail{AccountRef: entityRef{Value: in.CategoryID}},
		}},
	}

	var out billEnvelope
	if err := a.post(ctx, accessToken, realmID, "bill", nil, body, &out); err != nil {
		return "", "", err
	}
	return out.Bill.ID, out.Bill.SyncToken, nil
}

func (a *Adapter) CreateBillPayment(ctx context.Context, accessToken, realmID string, in dto.BillPaymentCreate) (string, error) {
	body := billPayment{
		VendorRef: entityRef{Value: in.VendorID},
		PayType:   in.PayType,
		TotalAmt:  in.Amount,
		TxnDate:   in.TxnDate,
		Line: []expenseLine{{
			Amount:     in.Amount,
			DetailType: "LinkedTxn",
			LinkedTxns: []linkedTxn{{TxnID: in.BillID, TxnType: "Bill"}},
		}},
	}
	switch in.PayType {
	case "CreditCard":
		body.CreditCardPayment = &creditCardPayment{CCAccountRef: entityRef{Value: in.PaymentAccountID}}
	default: // "Check"
		body.CheckPayment = &checkPayment{BankAccountRef: entityRef{Value: in.PaymentAccountID}}
	}

	var out billPaymentEnvelope
	if err := a.post(ctx, accessToken, realmID, "billpayment", nil, body, &out); err != nil {
		return "", err
	}
	return out.BillPayment.ID, nil
}

func (a *Adapter) DeleteBill(ctx context.Context, accessToken, realmID, billID, syncToken string) error {
	body := bill{ID: billID, SyncToken: syncToken}
	return a.post(ctx, accessToken, realmID, "bill", url.Values{"operation": {"delete"}}, body, nil)
}

// UploadAttachment sends the partner's fixed multipart contract: a JSON
// metadata part named file_metadata_01 and the binary content as
// file_content_01.
func (a *Adapter) UploadAttachment(ctx context.Context, accessToken, realmID string, in dto.AttachmentUpload) (string, error) {
	meta := attachable{
		FileName:    in.FileName,
		ContentType: in.ContentType,
		AttachableRefs: []attachableRef{{
			EntityRef: entityRef{Value: in.TxnID, Type: in.TxnType},
		}},
	}

	body, contentType, err := buildAttachmentBody(meta, in)
	if err != nil {
		return "", err
	}

	endpoint := a.entityURL(realmID, "upload", nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)

	resp, err := a.http.Do(req)
	if err != nil {
		return "", errs.NewTransientError("attachment upload failed: " + err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.NewTransientError("attachment upload read failed: " + err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classifyAPIFailure(resp.StatusCode, raw)
	}

	var out attachableEnvelope
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding attachment response: %w", err)
	}
	if len(out.AttachableResponse) == 0 {
		return "", fmt.Errorf("attachment response is empty")
	}
	return out.AttachableResponse[0].Attachable.ID, nil
}

// --- request plumbing ---

func (a *Adapter) entityURL(realmID, entity string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("minorversion", minorVersion)
	return fmt.Sprintf("%s/v3/company/%s/%s?%s", a.apiBase, realmID, entity, params.Encode())
}

func (a *Adapter) get(ctx context.Context, accessToken, realmID, entity string, params url.Values, out any) error {
	return a.do(ctx, http.MethodGet, accessToken, realmID, entity, params, nil, out)
}

func (a *Adapter) post(ctx context.Context, accessToken, realmID, entity string, params url.Values, in, out any) error {
	return a.do(ctx, http.MethodPost, accessToken, realmID, entity, params, in, out)
}

func (a *Adapter) do(ctx context.Context, method, accessToken, realmID, entity string, params url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.entityURL(realmID, entity, params), body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return errs.NewTransientError("ledger request failed: " + err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.NewTransientError("ledger response read failed: " + err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyAPIFailure(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// escapeQueryValue escapes single quotes for the partner's query grammar.
func escapeQueryValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}
