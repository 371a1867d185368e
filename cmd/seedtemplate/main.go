// Command seedtemplate creates and activates the default Russian customs
// declaration template, along with the admin user that owns it.
// Usage: go run ./cmd/seedtemplate
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"silkroute/internal/config"
	"silkroute/internal/domain"
	"silkroute/internal/port"
	"silkroute/internal/repository/postgres"
	"silkroute/internal/service"
)

const (
	templateCategory = "russian_customs"
	adminEmail       = "admin@silkroute.example"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	userRepo := postgres.NewUserRepo(db)
	templateRepo := postgres.NewTemplateRepo(db)
	templateSvc := service.NewTemplateService(templateRepo)

	if existing, err := templateRepo.GetActiveByCategory(ctx, templateCategory); err == nil {
		log.Printf("active template %q (version %d) already exists for category %s, nothing to do",
			existing.Name, existing.Version, templateCategory)
		return nil
	} else if !errors.Is(err, domain.ErrMissingActiveTemplate) {
		return fmt.Errorf("failed to check existing template: %w", err)
	}

	admin, err := ensureAdmin(ctx, userRepo)
	if err != nil {
		return err
	}

	tpl, err := templateSvc.Create(ctx, service.CreateTemplateInput{
		Name:     "Российская таможенная декларация",
		Category: templateCategory,
		DocTypePriority: []domain.DocumentType{
			domain.DocTypeCustomsDeclaration,
			domain.DocTypeInvoice,
			domain.DocTypeBillOfLading,
			domain.DocTypePackingList,
			domain.DocTypeCertificateOfQuality,
			domain.DocTypeOriginCertificate,
		},
		Fields:    templateFields(),
		CreatedBy: admin.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	if err := templateSvc.Activate(ctx, tpl.ID); err != nil {
		return fmt.Errorf("failed to activate template: %w", err)
	}

	log.Printf("seeded and activated template %q (%d fields) for category %s", tpl.Name, len(tpl.Fields), templateCategory)
	return nil
}

// ensureAdmin returns the seed admin user, creating it when missing. The
// password comes from SILKROUTE_SEED_ADMIN_PASSWORD.
func ensureAdmin(ctx context.Context, userRepo port.UserRepository) (*domain.User, error) {
	admin, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		return admin, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up admin user: %w", err)
	}

	password := os.Getenv("SILKROUTE_SEED_ADMIN_PASSWORD")
	if password == "" {
		return nil, errors.New("SILKROUTE_SEED_ADMIN_PASSWORD must be set to create the admin user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin = &domain.User{
		ID:           uuid.New(),
		Email:        adminEmail,
		PasswordHash: string(hash),
		FullName:     "SilkRoute Admin",
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	log.Printf("created admin user %s", adminEmail)
	return admin, nil
}

func keyword(anchor, mode string, lines int) json.RawMessage {
	cfg := map[string]any{"type": "keyword", "anchor": anchor, "mode": mode}
	if lines > 0 {
		cfg["lines"] = lines
	}
	raw, _ := json.Marshal(cfg)
	return raw
}

func regex(pattern string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{"type": "regex", "pattern": pattern})
	return raw
}

// templateFields defines the declaration fields with their extraction
// rules, following the section layout of the official form.
func templateFields() []service.FieldDefinitionInput {
	return []service.FieldDefinitionInput{
		// Основная информация о декларации
		{
			Name: "declaration_number", Label: "Номер декларации", Section: "declaration_info",
			Required: true, DataType: "text",
			RuleConfig: regex(`(\d{5}\s*/\s*\d{2}\.\d{2}\.\d{4}\s*/\s*\d{7})`),
		},
		{
			Name: "declaration_date", Label: "Дата подачи декларации", Section: "declaration_info",
			Required: true, DataType: "date",
			RuleConfig: regex(`(\d{2}\.\d{2}\.\d{4})`),
		},
		{
			Name: "customs_post", Label: "Таможенный пост", Section: "declaration_info",
			DataType:   "text",
			RuleConfig: keyword("таможенный пост", "same_line", 0),
		},

		// Отправитель / Экспортер
		{
			Name: "sender_name", Label: "Отправитель", Section: "sender",
			Required: true, DataType: "text",
			RuleConfig: keyword("отправитель", "same_line", 0),
		},
		{
			Name: "sender_address", Label: "Адрес отправителя", Section: "sender",
			DataType:   "text",
			RuleConfig: keyword("адрес отправителя", "next_lines", 2),
		},
		{
			Name: "departure_country", Label: "Страна отправления", Section: "sender",
			Required: true, DataType: "text",
			RuleConfig: keyword("страна отправления", "same_line", 0),
		},

		// Получатель / Импортер
		{
			Name: "recipient_name", Label: "Получатель", Section: "recipient",
			Required: true, DataType: "text",
			RuleConfig: keyword("получатель", "same_line", 0),
		},
		{
			Name: "recipient_address", Label: "Адрес получателя", Section: "recipient",
			DataType:   "text",
			RuleConfig: keyword("адрес получателя", "next_lines", 2),
		},
		{
			Name: "recipient_inn", Label: "ИНН получателя", Section: "recipient",
			DataType:   "number",
			RuleConfig: regex(`ИНН[:\s]*(\d{9,12})`),
		},
		{
			Name: "destination_country", Label: "Страна назначения", Section: "recipient",
			Required: true, DataType: "text",
			RuleConfig: keyword("страна назначения", "same_line", 0),
		},

		// Транспорт
		{
			Name: "border_transport", Label: "Транспорт на границе", Section: "transport",
			DataType:   "text",
			RuleConfig: keyword("транспорт на границе", "same_line", 0),
		},
		{
			Name: "container_number", Label: "Номер контейнера", Section: "transport",
			DataType:   "text",
			RuleConfig: regex(`([A-Z]{4}\d{7})`),
		},
		{
			Name: "delivery_terms", Label: "Условия поставки", Section: "transport",
			DataType:   "text",
			RuleConfig: keyword("условия поставки", "same_line", 0),
		},

		// Товары
		{
			Name: "hs_code", Label: "Код ТН ВЭД", Section: "goods",
			Required: true, DataType: "number",
			RuleConfig: regex(`ТН\s*ВЭД[:\s]*(\d{10})`),
		},
		{
			Name: "goods_description", Label: "Описание товаров", Section: "goods",
			Required: true, DataType: "text",
			RuleConfig: keyword("описание товаров", "next_lines", 3),
		},
		{
			Name: "origin_country", Label: "Страна происхождения", Section: "goods",
			DataType:   "text",
			RuleConfig: keyword("страна происхождения", "same_line", 0),
		},
		{
			Name: "gross_weight", Label: "Вес брутто", Section: "goods",
			Required: true, DataType: "number",
			RuleConfig: regex(`(?i)вес\s+брутто[:\s]*([\d\s]+[.,]?\d*)\s*кг`),
		},
		{
			Name: "net_weight", Label: "Вес нетто", Section: "goods",
			Required: true, DataType: "number",
			RuleConfig: regex(`(?i)вес\s+нетто[:\s]*([\d\s]+[.,]?\d*)\s*кг`),
		},
		{
			Name: "package_count", Label: "Количество мест", Section: "goods",
			DataType:   "number",
			RuleConfig: keyword("кол-во мест", "same_line", 0),
		},

		// Финансовые сведения
		{
			Name: "currency", Label: "Валюта", Section: "financial",
			DataType:   "text",
			RuleConfig: regex(`\b(USD|EUR|RUB|UZS|CNY)\b`),
		},
		{
			Name: "total_value", Label: "Общая фактурная стоимость", Section: "financial",
			Required: true, DataType: "number",
			RuleConfig: keyword("фактурная стоимость", "same_line", 0),
		},
		{
			Name: "statistical_value", Label: "Статистическая стоимость", Section: "financial",
			DataType:   "number",
			RuleConfig: keyword("статистическая стоимость", "same_line", 0),
		},

		// Сопроводительные документы
		{
			Name: "invoice_number", Label: "Номер инвойса", Section: "documents",
			Required: true, DataType: "text",
			RuleConfig: regex(`(?i)(?:инвойс|invoice)\s*№?\s*([A-Za-zА-Яа-я0-9/-]+)`),
		},
		{
			Name: "invoice_date", Label: "Дата инвойса", Section: "documents",
			DataType:   "date",
			RuleConfig: keyword("дата инвойса", "same_line", 0),
		},
		{
			Name: "contract_number", Label: "Номер контракта", Section: "documents",
			DataType:   "text",
			RuleConfig: keyword("контракт", "same_line", 0),
		},
	}
}
