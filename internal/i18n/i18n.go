// Package i18n localises the studio's UI text. English strings are the
// message keys; untranslated text falls through unchanged.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supported = []language.Tag{language.English, language.Indonesian}

var matcher = language.NewMatcher(supported)

var indonesian = []struct{ key, text string }{
	{"AI Image Editor", "Editor Gambar AI"},
	{"Transform Your Photos", "Ubah Foto Anda"},
	{"Create stunning artistic styles with the power of AI", "Ciptakan gaya artistik memukau dengan kekuatan AI"},
	{"Upload Your Image", "Unggah Gambar Anda"},
	{"Select an image to begin transformation", "Pilih gambar untuk memulai transformasi"},
	{"Drop your image here", "Letakkan gambar Anda di sini"},
	{"or click to browse", "atau klik untuk memilih"},
	{"Choose Image", "Pilih Gambar"},
	{"Image uploaded", "Gambar terunggah"},
	{"Remove", "Hapus"},
	{"Choose Transformation Style", "Pilih Gaya Transformasi"},
	{"Select a predefined style or create your own custom prompt", "Pilih gaya bawaan atau buat prompt kustom Anda"},
	{"Custom Prompt Mode", "Mode Prompt Kustom"},
	{"Write your own transformation instructions", "Tulis instruksi transformasi Anda sendiri"},
	{"Enter Your Custom Prompt", "Masukkan Prompt Kustom Anda"},
	{"Transform Image", "Ubah Gambar"},
	{"Processing Transformation...", "Memproses Transformasi..."},
	{"Preview & Download", "Pratinjau & Unduh"},
	{"View your transformed image and download the result", "Lihat gambar hasil transformasi dan unduh hasilnya"},
	{"Creating your masterpiece...", "Membuat mahakarya Anda..."},
	{"Original", "Asli"},
	{"Transformed", "Hasil"},
	{"Ready to transform", "Siap diubah"},
	{"Pick a style and press Transform Image", "Pilih gaya lalu tekan Ubah Gambar"},
	{"No image selected yet", "Belum ada gambar dipilih"},
	{"Download Transformed Image", "Unduh Gambar Hasil"},
	{"Dismiss", "Tutup"},
	{"Custom Prompt", "Prompt Kustom"},
	{"Please upload an image first", "Silakan unggah gambar terlebih dahulu"},
	{"Please enter a custom prompt", "Silakan masukkan prompt kustom"},
	{"Please choose an image file", "Silakan pilih berkas gambar"},
	{"The image is too large to upload", "Gambar terlalu besar untuk diunggah"},
	{"Unknown transformation style", "Gaya transformasi tidak dikenal"},
	{"A transformation is already in progress", "Transformasi sedang berlangsung"},
	{"There is no transformed image to download", "Belum ada gambar hasil untuk diunduh"},
	{"An error occurred during transformation", "Terjadi kesalahan saat transformasi"},
	{"Cannot connect to server. Please ensure the backend is running.", "Tidak dapat terhubung ke server. Pastikan backend berjalan."},
	{"Server error occurred", "Terjadi kesalahan server"},
	{"Transformation failed", "Transformasi gagal"},
	{"An unexpected error occurred", "Terjadi kesalahan tak terduga"},
	{"Powered by Google Gemini AI • Created for artistic expression", "Didukung Google Gemini AI • Dibuat untuk ekspresi artistik"},
}

var known = make(map[string]struct{}, len(indonesian))

func init() {
	for _, m := range indonesian {
		known[m.key] = struct{}{}
		_ = message.SetString(language.Indonesian, m.key, m.text)
	}
}

// Match picks the best supported language for the given preferences, which
// may be locale names or Accept-Language headers. Empty input yields the
// fallback.
func Match(fallback string, prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if fb, err := language.Parse(fallback); err == nil {
		tags = append(tags, fb)
	}
	if len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// Translator renders UI strings for one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

func New(tag language.Tag) *Translator {
	return &Translator{tag: tag, printer: message.NewPrinter(tag)}
}

// Lang is the BCP 47 code for the html lang attribute.
func (t *Translator) Lang() string {
	base, _ := t.tag.Base()
	return base.String()
}

// T translates a known key. Unknown text, such as messages supplied by the
// backend, is returned verbatim and never interpreted as a format string.
func (t *Translator) T(key string) string {
	if _, ok := known[key]; !ok {
		return key
	}
	return t.printer.Sprintf(key)
}
