package service

import (
	"context"

	"github.com/nidaro/nidaro-backend/pkg/gstportal"
)

// OTPSender issues and checks SMS one-time codes. *sms.Client implements it.
type OTPSender interface {
	SendOTP(ctx context.Context, mobileNo string) (string, error)
	VerifyOTP(ctx context.Context, mobileNo, code string) error
}

// TaxPortal is the taxpayer search of the GST portal. *gstportal.Client implements it.
type TaxPortal interface {
	GetCaptcha(ctx context.Context) (*gstportal.Captcha, error)
	SearchByPAN(ctx context.Context, pan, captcha, cookies string) ([]string, error)
	GetTaxpayerDetails(ctx context.Context, gstin, captcha, cookies string) (*gstportal.TaxpayerDetails, error)
	GetGoodsServices(ctx context.Context, gstin, cookies string) (*gstportal.GoodsServices, error)
}
