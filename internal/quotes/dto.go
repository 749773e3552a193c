package quotes

type CreateQuoteRequest struct {
	CustomerID   int64                   `json:"customer_id" validate:"gte=0"`
	Email        string                  `json:"email,omitempty" validate:"omitempty,email"`
	Note         string                  `json:"note,omitempty" validate:"max=5000"`
	Tags         string                  `json:"tags,omitempty" validate:"max=255"`
	ShippingName string                  `json:"shipping_name,omitempty" validate:"max=255"`
	Shipping     string                  `json:"shipping,omitempty" validate:"omitempty,numeric"`
	Discount     string                  `json:"discount,omitempty" validate:"omitempty,numeric"`
	Lines        []CreateQuoteLineRequest `json:"lines" validate:"required,min=1,max=250,dive"`
}

type CreateQuoteLineRequest struct {
	VariantID *int64 `json:"variant_id,omitempty" validate:"omitempty,gt=0"`
	Title     string `json:"title,omitempty" validate:"required_without=VariantID,max=255"`
	Price     string `json:"price,omitempty" validate:"required_without=VariantID,omitempty,numeric"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,lte=10000"`
}

type ConvertRequest struct {
	SendEmail     bool         `json:"send_email"`
	CompleteOrder bool         `json:"complete_order"`
	Regenerate    bool         `json:"regenerate"`
	Email         *EmailFields `json:"email,omitempty"`
}

type EmailFields struct {
	To      string   `json:"to,omitempty" validate:"omitempty,email"`
	BCC     []string `json:"bcc,omitempty" validate:"omitempty,max=5,dive,email"`
	Subject string   `json:"subject,omitempty" validate:"max=255"`
	Message string   `json:"message,omitempty" validate:"max=5000"`
}

type BatchConvertRequest struct {
	QuoteIDs []string `json:"quote_ids" validate:"required,min=1,max=100"`
	ConvertRequest
}

type EmailDraftRequest struct {
	Tone    string `json:"tone,omitempty" validate:"max=50"`
	CallID  string `json:"call_id,omitempty" validate:"max=100"`
	Context string `json:"context,omitempty" validate:"max=2000"`
}
