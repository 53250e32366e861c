package services

import "fmt"

// User-facing messages. The screens are Arabic only.
const (
	MsgInvalidCredentials = "بيانات الدخول غير صحيحة"
	MsgConnectionError    = "حدث خطأ في الاتصال بالخادم"
	MsgCredentialsMissing = "يرجى إدخال اسم المستخدم وكلمة المرور"
	MsgSaleIncomplete     = "يرجى إضافة منتجات وبيانات العميل"
	MsgSaleFailed         = "حدث خطأ أثناء إنجاز البيع"

	msgSaleCompleted = "تم إنجاز البيع بنجاح! رقم الفاتورة: %s"
)

// SaleCompletedMessage is the confirmation shown after a recorded sale.
func SaleCompletedMessage(invoice string) string {
	return fmt.Sprintf(msgSaleCompleted, invoice)
}
