package database

import (
	"encoding/json"
	"fmt"
	"log"

	"nmt_prep_backend/internal/config"
	"nmt_prep_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Test{},
		&model.Question{},
		&model.UserProgress{},
		&model.AttemptLog{},
		&model.UserPermission{},
		&model.Lesson{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedCategories(db)
	seedDemoTest(db)

	return db, nil
}

func mustJSON(v interface{}) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}

func seedCategories(db *gorm.DB) {
	var count int64
	db.Model(&model.Category{}).Count(&count)
	if count > 0 {
		return
	}

	defaults := []model.Category{
		{Code: "nmt", Name: "Підготовка до НМТ", Description: "Національний мультипредметний тест з історії України", Order: 1, Enabled: true},
		{Code: "grade9", Name: "9 клас", Description: "Шкільна програма, 9 клас", Order: 2, Enabled: true},
	}
	for _, c := range defaults {
		db.Create(&c)
	}
}

// seedDemoTest inserts a small starter test so a fresh install has content
// to grade against.
func seedDemoTest(db *gorm.DB) {
	var count int64
	db.Model(&model.Test{}).Count(&count)
	if count > 0 {
		return
	}

	test := model.Test{
		Slug:         "test1",
		Title:        "НМТ Експрес: варіант 1",
		Description:  "Демонстраційний варіант тесту з історії України",
		CategoryCode: "nmt",
		Order:        1,
		IsPublished:  true,
	}
	if err := db.Create(&test).Error; err != nil {
		return
	}

	correct3 := 3
	correct0 := 0
	questions := []model.Question{
		{
			TestID:   test.ID,
			Position: 0,
			Kind:     "single",
			Prompt:   "Уривок джерела, у якому схарактеризовано часи Голодомору, можна використати для пояснення його:",
			Options:  mustJSON([]string{"передумов", "масштабу", "жертв", "мети"}),
			CorrectSingle: &correct3,
			Explanation:   "Відповідь: Мети. Уривок прямо вказує на те, що голод був наслідком свідомої державної політики хлібозаготівель.",
		},
		{
			TestID:   test.ID,
			Position: 1,
			Kind:     "matching",
			Prompt:   "Поєднайте назву організації з іменем історичної особи, яка була її членом.",
			LeftItems: mustJSON([]string{
				"Братство тарасівців",
				"Кирило-Мефодіївське братство",
				"Південно-Західний відділ РГО",
				"Наукове товариство ім. Т. Шевченка",
			}),
			RightItems: mustJSON([]string{
				"Микола Гулак",
				"Михайло Грушевський",
				"Дмитро Донцов",
				"Павло Чубинський",
				"Микола Міхновський",
			}),
			CorrectMapping: mustJSON(map[int]int{0: 4, 1: 0, 2: 3, 3: 1}),
			Explanation:    "Братство тарасівців — М. Міхновський; КМ братство — М. Гулак; ПЗ відділ РГО — П. Чубинський; НТШ — М. Грушевський.",
		},
		{
			TestID:   test.ID,
			Position: 2,
			Kind:     "sequence",
			Prompt:   "Установіть послідовність подій XVII–XVIII ст.",
			LeftItems: mustJSON([]string{
				"Руїна",
				"Паліївщина",
				"Коліївщина",
				"Хмельниччина",
			}),
			CorrectMapping: mustJSON(map[int]int{0: 1, 1: 2, 2: 3, 3: 0}),
			Explanation:    "1. Хмельниччина (1648); 2. Руїна (1657+); 3. Паліївщина (1702); 4. Коліївщина (1768).",
		},
		{
			TestID:        test.ID,
			Position:      3,
			Kind:          "single",
			Prompt:        "Ухвалення якого Універсалу УЦР дало поштовх до створення Генерального секретаріату?",
			Options:       mustJSON([]string{"Першого", "Другого", "Третього", "Четвертого"}),
			CorrectSingle: &correct0,
			Explanation:   "Відповідь: Першого Універсалу. Одразу після проголошення автономії був створений перший уряд — Генеральний Секретаріат.",
		},
	}
	for _, q := range questions {
		db.Create(&q)
	}
}
